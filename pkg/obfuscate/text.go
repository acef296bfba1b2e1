package obfuscate

import "github.com/Real-Fruit-Snacks/Mirage/pkg/codec"

// Text wraps Value[string] with the string operator surface. The only
// compound operator on text is append.
type Text struct {
	Value[string]
}

// NewText returns an empty text container.
func NewText(opts ...Option) *Text {
	t := &Text{}
	t.init(codec.String(), opts...)
	return t
}

// Append stores and returns stored + rhs. The read, concatenation, and
// write-back run under one lock acquisition.
func (t *Text) Append(rhs string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, err := t.getLocked()
	if err != nil {
		return "", err
	}
	res := cur + rhs
	t.setLocked(res)
	return res, nil
}
