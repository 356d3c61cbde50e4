package main

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/pasteleia/bakery/internal/domain/product"
)

// gzipMagic prefixes every gzip stream.
var gzipMagic = []byte{0x1f, 0x8b}

// readProducts loads the seed catalog from path. Gzip-compressed files are
// detected by their magic bytes and decompressed in parallel.
func readProducts(path string) ([]product.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open products file")
	}
	defer func() { _ = f.Close() }()

	return decodeProducts(f)
}

func decodeProducts(r io.Reader) ([]product.Product, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if head, _ := br.Peek(len(gzipMagic)); bytes.Equal(head, gzipMagic) {
		zr, err := pgzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer func() { _ = zr.Close() }()
		src = zr
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.Wrap(err, "read products")
	}

	var products []product.Product
	if err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		p := product.Product{Active: true}
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "name":
				p.Name, err = d.Str()
			case "description":
				p.Description, err = d.Str()
			case "price":
				var s string
				if s, err = d.Str(); err != nil {
					return err
				}
				p.Price, err = decimal.NewFromString(s)
			case "stock":
				p.Stock, err = d.Int()
			case "active":
				p.Active, err = d.Bool()
			case "category":
				var c string
				c, err = d.Str()
				p.Category = product.Category(c)
			case "imageUrl":
				p.ImageURL, err = d.Str()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		p.Normalize()
		if err := p.Validate(); err != nil {
			return errors.Wrapf(err, "product %q", p.Name)
		}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return products, nil
}

// missingProducts returns the seed products whose name is not yet in the
// catalog.
func missingProducts(seed, existing []product.Product) []product.Product {
	known := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		known[strings.ToLower(p.Name)] = struct{}{}
	}
	var out []product.Product
	for _, p := range seed {
		if _, ok := known[strings.ToLower(p.Name)]; !ok {
			out = append(out, p)
		}
	}
	return out
}
