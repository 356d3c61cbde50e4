package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// payloadVersion is bumped whenever the persisted layout changes; snapshots
// with another version are treated as corrupt.
const payloadVersion = 1

// Marshal encodes lines into the persisted cart payload.
func Marshal(lines []Line) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("v")
	e.Int(payloadVersion)
	e.FieldStart("lines")
	e.ArrStart()
	for _, l := range lines {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(l.ProductID)
		e.FieldStart("name")
		e.Str(l.Name)
		e.FieldStart("unitPrice")
		e.Str(l.UnitPrice.String())
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("stock")
		e.Int(l.Stock)
		if l.ImageURL != "" {
			e.FieldStart("imageUrl")
			e.Str(l.ImageURL)
		}
		if l.Free {
			e.FieldStart("free")
			e.Bool(true)
		}
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()

	return append([]byte(nil), e.Bytes()...)
}

// Unmarshal decodes a persisted cart payload. Any structural problem,
// unknown version, duplicate product or line breaking the quantity invariant
// is reported as an error.
func Unmarshal(data []byte) ([]Line, error) {
	var (
		version int
		lines   []Line
	)
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "v":
			v, err := d.Int()
			version = v
			return err
		case "lines":
			return d.Arr(func(d *jx.Decoder) error {
				l, err := decodeLine(d)
				if err != nil {
					return err
				}
				lines = append(lines, l)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}

	if version != payloadVersion {
		return nil, errors.Errorf("unsupported cart payload version %d", version)
	}

	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if l.ProductID == "" {
			return nil, errors.New("cart line without product id")
		}
		if l.Quantity < 1 {
			return nil, errors.Errorf("cart line %s: quantity %d", l.ProductID, l.Quantity)
		}
		if _, dup := seen[l.ProductID]; dup {
			return nil, errors.Errorf("duplicate cart line %s", l.ProductID)
		}
		seen[l.ProductID] = struct{}{}
	}
	return lines, nil
}

func decodeLine(d *jx.Decoder) (Line, error) {
	var l Line
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			l.ProductID, err = d.Str()
		case "name":
			l.Name, err = d.Str()
		case "unitPrice":
			var s string
			if s, err = d.Str(); err != nil {
				return err
			}
			l.UnitPrice, err = decimal.NewFromString(s)
		case "quantity":
			l.Quantity, err = d.Int()
		case "stock":
			l.Stock, err = d.Int()
		case "imageUrl":
			l.ImageURL, err = d.Str()
		case "free":
			l.Free, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	return l, err
}
