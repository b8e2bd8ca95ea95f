package promo

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// DecodeTable parses a promo table document:
//
//	{"codes":[{"code":"SAVE20","discount":20,"minOrder":100,"description":"..."}]}
func DecodeTable(data []byte) (*Table, error) {
	var codes []Code
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "codes" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			var c Code
			if err := c.decode(d); err != nil {
				return errors.Wrapf(err, "code %d", len(codes))
			}
			codes = append(codes, c)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode promo table")
	}
	return NewTable(codes...)
}

// EncodeTable writes t in the format read by DecodeTable.
func EncodeTable(e *jx.Encoder, t *Table) {
	e.ObjStart()
	e.FieldStart("codes")
	e.ArrStart()
	for _, c := range t.Codes() {
		e.ObjStart()
		e.FieldStart("code")
		e.Str(c.Code)
		e.FieldStart("discount")
		e.Raw([]byte(c.Discount.String()))
		e.FieldStart("minOrder")
		e.Raw([]byte(c.MinOrder.String()))
		if c.Description != "" {
			e.FieldStart("description")
			e.Str(c.Description)
		}
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func (c *Code) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			c.Code, err = d.Str()
		case "discount":
			c.Discount, err = decodeAmount(d)
		case "minOrder":
			c.MinOrder, err = decodeAmount(d)
		case "description":
			c.Description, err = d.Str()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
}

func decodeAmount(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(n.String())
}
