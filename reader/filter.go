package reader

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"errors"
	"fmt"
	"io"
)

// decodeStream applies the stream's filter chain.
func decodeStream(s Stream) ([]byte, error) {
	var filters []Name
	var params []Dict
	switch f := s.Dict["Filter"].(type) {
	case nil:
		return s.Data, nil
	case Name:
		filters = []Name{f}
		params = []Dict{s.Dict.GetDict("DecodeParms")}
	case Array:
		parms := s.Dict.GetArray("DecodeParms")
		for i, item := range f {
			n, ok := item.(Name)
			if !ok {
				return nil, fmt.Errorf("reader: filter %d is %T, not a name", i, item)
			}
			filters = append(filters, n)
			var d Dict
			if i < len(parms) {
				d, _ = parms[i].(Dict)
			}
			params = append(params, d)
		}
	default:
		return nil, fmt.Errorf("reader: unexpected /Filter %T", f)
	}

	data := s.Data
	for i, f := range filters {
		var err error
		if data, err = applyFilter(f, params[i], data); err != nil {
			return nil, fmt.Errorf("reader: %s: %w", f, err)
		}
	}
	return data, nil
}

func applyFilter(name Name, parms Dict, data []byte) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		out, err := flateDecode(data)
		if err != nil {
			return nil, err
		}
		return unpredict(out, parms)
	case "ASCIIHexDecode", "AHx":
		src := append(append([]byte{'<'}, data...), '>')
		out, _, _ := scanHex(src, 0)
		return out, nil
	case "ASCII85Decode", "A85":
		return ascii85Decode(data)
	}
	return nil, errors.New("unsupported filter")
}

func flateDecode(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil && len(out) == 0 {
		return nil, err
	}
	// Producers often truncate the checksum; keep what inflated.
	return out, nil
}

func ascii85Decode(data []byte) ([]byte, error) {
	if end := bytes.Index(data, []byte("~>")); end >= 0 {
		data = data[:end]
	}
	return io.ReadAll(ascii85.NewDecoder(bytes.NewReader(data)))
}

// unpredict reverses PNG row predictors (Predictor >= 10), which
// cross-reference streams commonly use.
func unpredict(data []byte, parms Dict) ([]byte, error) {
	predictor, _ := parms.GetInt("Predictor")
	if predictor < 10 {
		return data, nil
	}
	columns, ok := parms.GetInt("Columns")
	if !ok || columns <= 0 {
		columns = 1
	}
	colors, ok := parms.GetInt("Colors")
	if !ok || colors <= 0 {
		colors = 1
	}
	bpc, ok := parms.GetInt("BitsPerComponent")
	if !ok || bpc <= 0 {
		bpc = 8
	}
	bpp := int((colors*bpc + 7) / 8)
	rowLen := int((columns*colors*bpc + 7) / 8)

	var out []byte
	prev := make([]byte, rowLen)
	for len(data) > 0 {
		if len(data) < rowLen+1 {
			return nil, errors.New("short predictor row")
		}
		kind, row := data[0], append([]byte(nil), data[1:rowLen+1]...)
		data = data[rowLen+1:]
		for i := range row {
			var left, upLeft byte
			if i >= bpp {
				left, upLeft = row[i-bpp], prev[i-bpp]
			}
			up := prev[i]
			switch kind {
			case 1:
				row[i] += left
			case 2:
				row[i] += up
			case 3:
				row[i] += byte((int(left) + int(up)) / 2)
			case 4:
				row[i] += paeth(left, up, upLeft)
			}
		}
		out = append(out, row...)
		prev = row
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
