package step

import (
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Header holds the FILE_DESCRIPTION, FILE_NAME and FILE_SCHEMA records.
type Header struct {
	Description       []string
	Name              string
	TimeStamp         string
	Author            []string
	Organization      []string
	Preprocessor      string
	OriginatingSystem string
	Schemas           []string
}

// File is a parsed exchange structure.
type File struct {
	Header   Header
	entities map[int]*Entity
	ids      []int
}

// Entity returns the instance #id.
func (f *File) Entity(id int) (*Entity, bool) {
	e, ok := f.entities[id]
	return e, ok
}

// Len returns the number of instances in the data section.
func (f *File) Len() int {
	return len(f.ids)
}

// Each returns the instances having a record of any of the given types, in id order.
func (f *File) Each(types ...string) []*Entity {
	var out []*Entity
	for _, id := range f.ids {
		if e := f.entities[id]; e.Is(types...) {
			out = append(out, e)
		}
	}
	return out
}

// Read parses an exchange structure from r.
func Read(r io.Reader) (*File, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read step data: %w", err)
	}
	return Parse(src)
}

// Parse parses an exchange structure.
func Parse(src []byte) (*File, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	f, err := p.parseFile()
	if err != nil {
		return nil, fmt.Errorf("invalid step file: %w", err)
	}
	return f, nil
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", p.tok.line, fmt.Sprintf(format, args...))
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.tok
	if tok.kind != kind {
		return tok, p.errorf("expected %s, found %s %q", kind, tok.kind, tok.text)
	}
	return tok, p.advance()
}

func (p *parser) expectKeyword(word string) error {
	if p.tok.kind != tokKeyword || p.tok.text != word {
		return p.errorf("expected %s, found %q", word, p.tok.text)
	}
	return p.advance()
}

func (p *parser) parseFile() (*File, error) {
	f := &File{entities: make(map[int]*Entity)}

	if err := p.expectKeyword("ISO-10303-21"); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokSemicolon); err != nil {
		return nil, err
	}

	for {
		if p.tok.kind != tokKeyword {
			return nil, p.errorf("expected section keyword, found %s", p.tok.kind)
		}
		section := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}

		var err error
		switch section {
		case "END-ISO-10303-21":
			if _, err := p.expect(tokSemicolon); err != nil {
				return nil, err
			}
			sort.Ints(f.ids)
			return f, nil
		case "HEADER":
			err = p.parseHeader(&f.Header)
		case "DATA":
			err = p.parseData(f)
		default:
			err = p.skipSection()
		}
		if err != nil {
			return nil, fmt.Errorf("%s section: %w", section, err)
		}
	}
}

func (p *parser) parseHeader(h *Header) error {
	if _, err := p.expect(tokSemicolon); err != nil {
		return err
	}
	for {
		if p.tok.kind == tokKeyword && p.tok.text == "ENDSEC" {
			if err := p.advance(); err != nil {
				return err
			}
			_, err := p.expect(tokSemicolon)
			return err
		}
		rec, err := p.parseRecord()
		if err != nil {
			return err
		}
		if _, err := p.expect(tokSemicolon); err != nil {
			return err
		}
		applyHeaderRecord(h, rec)
	}
}

func applyHeaderRecord(h *Header, rec Record) {
	texts := func(i int) []string {
		list, err := rec.List(i)
		if err != nil {
			return nil
		}
		out := make([]string, 0, len(list))
		for _, v := range list {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	switch rec.Type {
	case "FILE_DESCRIPTION":
		h.Description = texts(0)
	case "FILE_NAME":
		h.Name = rec.Text(0)
		h.TimeStamp = rec.Text(1)
		h.Author = texts(2)
		h.Organization = texts(3)
		h.Preprocessor = rec.Text(4)
		h.OriginatingSystem = rec.Text(5)
	case "FILE_SCHEMA":
		h.Schemas = texts(0)
	}
}

func (p *parser) skipSection() error {
	for {
		switch {
		case p.tok.kind == tokEOF:
			return p.errorf("missing ENDSEC")
		case p.tok.kind == tokKeyword && p.tok.text == "ENDSEC":
			if err := p.advance(); err != nil {
				return err
			}
			_, err := p.expect(tokSemicolon)
			return err
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
}

func (p *parser) parseData(f *File) error {
	// Edition 3 allows DATA('name', ('schema'));
	if p.tok.kind == tokLParen {
		if _, err := p.parseParams(); err != nil {
			return err
		}
	}
	if _, err := p.expect(tokSemicolon); err != nil {
		return err
	}

	for {
		if p.tok.kind == tokKeyword && p.tok.text == "ENDSEC" {
			if err := p.advance(); err != nil {
				return err
			}
			_, err := p.expect(tokSemicolon)
			return err
		}

		e, err := p.parseInstance()
		if err != nil {
			return err
		}
		if _, dup := f.entities[e.ID]; dup {
			return fmt.Errorf("duplicate instance #%d", e.ID)
		}
		f.entities[e.ID] = e
		f.ids = append(f.ids, e.ID)
	}
}

func (p *parser) parseInstance() (*Entity, error) {
	tok, err := p.expect(tokInstance)
	if err != nil {
		return nil, err
	}
	id, err := strconv.Atoi(tok.text)
	if err != nil {
		return nil, p.errorf("invalid instance name #%s", tok.text)
	}
	if _, err := p.expect(tokEquals); err != nil {
		return nil, err
	}

	e := &Entity{ID: id}
	if p.tok.kind == tokLParen {
		// Complex instance: (A(...) B(...) ...)
		if err := p.advance(); err != nil {
			return nil, err
		}
		for p.tok.kind != tokRParen {
			rec, err := p.parseRecord()
			if err != nil {
				return nil, fmt.Errorf("#%d: %w", id, err)
			}
			e.Records = append(e.Records, rec)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if len(e.Records) == 0 {
			return nil, p.errorf("#%d: empty complex instance", id)
		}
	} else {
		rec, err := p.parseRecord()
		if err != nil {
			return nil, fmt.Errorf("#%d: %w", id, err)
		}
		e.Records = []Record{rec}
	}

	if _, err := p.expect(tokSemicolon); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *parser) parseRecord() (Record, error) {
	tok, err := p.expect(tokKeyword)
	if err != nil {
		return Record{}, err
	}
	params, err := p.parseParams()
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", tok.text, err)
	}
	return Record{Type: tok.text, Params: params}, nil
}

func (p *parser) parseParams() (List, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	list := List{}
	if p.tok.kind == tokRParen {
		return list, p.advance()
	}
	for {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		list = append(list, v)

		switch p.tok.kind {
		case tokComma:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case tokRParen:
			return list, p.advance()
		default:
			return nil, p.errorf("expected ',' or ')', found %s", p.tok.kind)
		}
	}
}

func (p *parser) parseValue() (Value, error) {
	tok := p.tok
	switch tok.kind {
	case tokInteger:
		n, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid integer %q", tok.text)
		}
		return n, p.advance()
	case tokReal:
		f, err := strconv.ParseFloat(normalizeReal(tok.text), 64)
		if err != nil {
			return nil, p.errorf("invalid real %q", tok.text)
		}
		return f, p.advance()
	case tokString:
		return tok.text, p.advance()
	case tokEnum:
		return Enum(tok.text), p.advance()
	case tokBinary:
		return Binary(tok.text), p.advance()
	case tokInstance:
		id, err := strconv.Atoi(tok.text)
		if err != nil {
			return nil, p.errorf("invalid reference #%s", tok.text)
		}
		return Ref(id), p.advance()
	case tokUnset:
		return Unset{}, p.advance()
	case tokDerived:
		return Derived{}, p.advance()
	case tokLParen:
		return p.parseParams()
	case tokKeyword:
		if err := p.advance(); err != nil {
			return nil, err
		}
		args, err := p.parseParams()
		if err != nil {
			return nil, err
		}
		if len(args) != 1 {
			return nil, p.errorf("typed parameter %s takes one value, got %d", tok.text, len(args))
		}
		return Typed{Type: tok.text, Value: args[0]}, nil
	}
	return nil, p.errorf("unexpected %s", tok.kind)
}

// normalizeReal accepts the "1." and "1.E5" spellings that strconv rejects.
func normalizeReal(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' && (i+1 == len(s) || s[i+1] == 'E' || s[i+1] == 'e') {
			return s[:i+1] + "0" + s[i+1:]
		}
	}
	return s
}
