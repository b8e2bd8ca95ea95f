package menu

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// DecodeCatalog parses a JSON array of menu items and builds a Catalog.
func DecodeCatalog(data []byte) (*Catalog, error) {
	var items []Item
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var it Item
		if err := it.decode(d); err != nil {
			return errors.Wrapf(err, "item %d", len(items))
		}
		items = append(items, it)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode menu")
	}
	return NewCatalog(items)
}

func (i *Item) decode(d *jx.Decoder) error {
	// Items are available unless the seed says otherwise.
	i.Available = true

	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			i.ID, err = d.Str()
		case "name":
			i.Name, err = d.Str()
		case "price":
			var n jx.Num
			if n, err = d.Num(); err != nil {
				return err
			}
			i.Price, err = decimal.NewFromString(n.String())
		case "category":
			var s string
			s, err = d.Str()
			i.Category = Category(s)
		case "image":
			i.Image, err = d.Str()
		case "description":
			i.Description, err = d.Str()
		case "isVeg":
			i.Veg, err = d.Bool()
		case "rating":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var f float64
			if f, err = d.Float64(); err != nil {
				return err
			}
			i.Rating = &f
		case "reviewCount":
			i.ReviewCount, err = d.Int()
		case "isAvailable":
			i.Available, err = d.Bool()
		case "preparationTime":
			i.PrepTime, err = d.Str()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
}
