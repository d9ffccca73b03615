package source

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errInvalidSerialized = errors.New("invalid php serialized value")

// UnserializePHP decodes a PHP serialize() payload into Go values.
// Arrays with keys 0..n-1 become []any, other arrays become map[string]any.
// Objects are decoded as maps of their properties.
func UnserializePHP(data string) (any, error) {
	p := &phpDecoder{data: data}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	if p.pos != len(strings.TrimRight(data, " \n\r\t")) {
		return nil, fmt.Errorf("%w: trailing data at offset %d", errInvalidSerialized, p.pos)
	}
	return v, nil
}

// IsPHPSerialized reports whether data looks like a PHP serialize() payload
func IsPHPSerialized(data string) bool {
	data = strings.TrimSpace(data)
	if data == "N;" {
		return true
	}
	if len(data) < 4 || data[1] != ':' {
		return false
	}
	switch data[0] {
	case 'a', 'O':
		return strings.HasSuffix(data, "}")
	case 's', 'i', 'd', 'b':
		return strings.HasSuffix(data, ";")
	}
	return false
}

type phpDecoder struct {
	data string
	pos  int
}

func (p *phpDecoder) value() (any, error) {
	if p.pos >= len(p.data) {
		return nil, fmt.Errorf("%w: unexpected end", errInvalidSerialized)
	}

	kind := p.data[p.pos]
	if kind == 'N' {
		return nil, p.expect("N;")
	}
	if err := p.expect(string(kind) + ":"); err != nil {
		return nil, err
	}

	switch kind {
	case 'b':
		raw, err := p.until(';')
		if err != nil {
			return nil, err
		}
		return raw == "1", nil
	case 'i':
		raw, err := p.until(';')
		if err != nil {
			return nil, err
		}
		return strconv.ParseInt(raw, 10, 64)
	case 'd':
		raw, err := p.until(';')
		if err != nil {
			return nil, err
		}
		return strconv.ParseFloat(raw, 64)
	case 's':
		return p.str()
	case 'a':
		return p.array()
	case 'O':
		// O:<len>:"<class>":<n>:{...}
		raw, err := p.until(':')
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || p.pos+n+1 > len(p.data) {
			return nil, fmt.Errorf("%w: bad class name length %q", errInvalidSerialized, raw)
		}
		if err := p.expect(`"`); err != nil {
			return nil, err
		}
		p.pos += n
		if err := p.expect(`":`); err != nil {
			return nil, err
		}
		return p.array()
	}

	return nil, fmt.Errorf("%w: unknown type %q", errInvalidSerialized, kind)
}

// str decodes <len>:"<bytes>"; after the type prefix
func (p *phpDecoder) str() (string, error) {
	raw, err := p.until(':')
	if err != nil {
		return "", err
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return "", fmt.Errorf("%w: bad string length %q", errInvalidSerialized, raw)
	}
	if err := p.expect(`"`); err != nil {
		return "", err
	}
	if p.pos+n > len(p.data) {
		return "", fmt.Errorf("%w: string overflows input", errInvalidSerialized)
	}
	s := p.data[p.pos : p.pos+n]
	p.pos += n
	if err := p.expect(`";`); err != nil {
		return "", err
	}
	return s, nil
}

// array decodes <n>:{key value ...}
func (p *phpDecoder) array() (any, error) {
	raw, err := p.until(':')
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: bad array length %q", errInvalidSerialized, raw)
	}
	if err := p.expect("{"); err != nil {
		return nil, err
	}

	keys := make([]string, 0, n)
	values := make([]any, 0, n)
	sequential := true
	for i := 0; i < n; i++ {
		key, err := p.value()
		if err != nil {
			return nil, err
		}
		value, err := p.value()
		if err != nil {
			return nil, err
		}

		switch k := key.(type) {
		case int64:
			if k != int64(i) {
				sequential = false
			}
			keys = append(keys, strconv.FormatInt(k, 10))
		case string:
			sequential = false
			keys = append(keys, k)
		default:
			return nil, fmt.Errorf("%w: unsupported array key %v", errInvalidSerialized, key)
		}
		values = append(values, value)
	}

	if err := p.expect("}"); err != nil {
		return nil, err
	}

	if sequential {
		return values, nil
	}
	m := make(map[string]any, n)
	for i, k := range keys {
		m[k] = values[i]
	}
	return m, nil
}

func (p *phpDecoder) expect(token string) error {
	if !strings.HasPrefix(p.data[p.pos:], token) {
		return fmt.Errorf("%w: expected %q at offset %d", errInvalidSerialized, token, p.pos)
	}
	p.pos += len(token)
	return nil
}

func (p *phpDecoder) until(delim byte) (string, error) {
	i := strings.IndexByte(p.data[p.pos:], delim)
	if i < 0 {
		return "", fmt.Errorf("%w: missing %q", errInvalidSerialized, delim)
	}
	s := p.data[p.pos : p.pos+i]
	p.pos += i + 1
	return s, nil
}
