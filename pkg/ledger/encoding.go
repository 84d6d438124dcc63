package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ava-labs/libevm/common"
	"gopkg.in/yaml.v3"
)

var ErrInvalidEncoding = errors.New("invalid ledger encoding")

// MarshalJSON encodes the ledger as an object of objects keyed by owner then
// asset id. Balances are decimal strings so values beyond 2^53 survive.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, owner := range l.owners {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(&buf, owner.Hex())
		buf.WriteString(":{")
		acc := l.accounts[owner]
		for j, asset := range acc.assets {
			if j > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(&buf, asset)
			buf.WriteByte(':')
			writeJSONString(&buf, acc.balances[asset].String())
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

// UnmarshalJSON decodes the MarshalJSON form, keeping key order. Balances may
// be decimal strings or JSON integers.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	out := newLedger()
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		owner, err := decodeOwner(dec)
		if err != nil {
			return err
		}
		if _, dup := out.accounts[owner]; dup {
			return fmt.Errorf("%w: duplicate owner %s", ErrInvalidEncoding, owner.Hex())
		}
		if err := expectDelim(dec, '{'); err != nil {
			return err
		}
		// An owner with no assets is still recorded.
		out.ensureOwner(owner)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
			}
			asset, _ := tok.(string)
			val, err := dec.Token()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
			}
			var raw string
			switch v := val.(type) {
			case string:
				raw = v
			case json.Number:
				raw = v.String()
			default:
				return fmt.Errorf("%w: balance of %s/%s is not a number", ErrInvalidEncoding, owner.Hex(), asset)
			}
			if err := out.set(owner, asset, raw); err != nil {
				return err
			}
		}
		if err := expectDelim(dec, '}'); err != nil {
			return err
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return err
	}
	*l = *out
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", ErrInvalidEncoding, want, tok)
	}
	return nil
}

func decodeOwner(dec *json.Decoder) (common.Address, error) {
	tok, err := dec.Token()
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	s, _ := tok.(string)
	return parseOwner(s)
}

func parseOwner(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: invalid owner address %q", ErrInvalidEncoding, s)
	}
	return common.HexToAddress(s), nil
}

func (l *Ledger) ensureOwner(owner common.Address) {
	if _, ok := l.accounts[owner]; !ok {
		l.accounts[owner] = &account{balances: make(map[string]*big.Int)}
		l.owners = append(l.owners, owner)
	}
}

func (l *Ledger) set(owner common.Address, asset, raw string) error {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return fmt.Errorf("%w: balance of %s/%s: %q is not an integer", ErrInvalidEncoding, owner.Hex(), asset, raw)
	}
	if _, dup := l.accounts[owner].balances[asset]; dup {
		return fmt.Errorf("%w: duplicate asset %s for owner %s", ErrInvalidEncoding, asset, owner.Hex())
	}
	l.entry(owner, asset).Set(v)
	return nil
}

// MarshalYAML encodes the ledger as nested ordered mappings.
func (l *Ledger) MarshalYAML() (any, error) {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, owner := range l.owners {
		assets := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		acc := l.accounts[owner]
		for _, asset := range acc.assets {
			assets.Content = append(assets.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: asset},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: acc.balances[asset].String()},
			)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: owner.Hex()},
			assets,
		)
	}
	return root, nil
}

// UnmarshalYAML decodes the MarshalYAML form, keeping key order.
func (l *Ledger) UnmarshalYAML(node *yaml.Node) error {
	out := newLedger()
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*l = *out
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: line %d: expected a mapping of owners", ErrInvalidEncoding, node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		owner, err := parseOwner(node.Content[i].Value)
		if err != nil {
			return err
		}
		if _, dup := out.accounts[owner]; dup {
			return fmt.Errorf("%w: duplicate owner %s", ErrInvalidEncoding, owner.Hex())
		}
		out.ensureOwner(owner)

		assets := node.Content[i+1]
		if assets.Kind == yaml.ScalarNode && assets.Tag == "!!null" {
			continue
		}
		if assets.Kind != yaml.MappingNode {
			return fmt.Errorf("%w: line %d: expected a mapping of assets", ErrInvalidEncoding, assets.Line)
		}
		for j := 0; j+1 < len(assets.Content); j += 2 {
			if err := out.set(owner, assets.Content[j].Value, assets.Content[j+1].Value); err != nil {
				return err
			}
		}
	}
	*l = *out
	return nil
}
