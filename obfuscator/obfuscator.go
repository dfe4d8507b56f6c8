// Package obfuscator derives the obfuscated `params` value the listing API
// requires. The transform itself is the site's own script routine, run as a
// black box.
package obfuscator

import "fmt"

// salt is prepended (base64 of "dappradar") before the second encode pass.
const salt = "ZGFwcH" + "JhZGFy"

// Transform is the site-supplied encode routine.
type Transform interface {
	Encode(text string) (string, error)
}

// TransformFunc adapts a plain function to Transform.
type TransformFunc func(text string) (string, error)

func (f TransformFunc) Encode(text string) (string, error) { return f(text) }

// Obfuscator turns a query string into the token accepted by the API.
type Obfuscator struct {
	t Transform
}

// New wraps a loaded transform.
func New(t Transform) *Obfuscator {
	return &Obfuscator{t: t}
}

// Encrypt returns encode(salt + encode(text)).
func (o *Obfuscator) Encrypt(text string) (string, error) {
	inner, err := o.t.Encode(text)
	if err != nil {
		return "", fmt.Errorf("obfuscator: encode: %w", err)
	}
	token, err := o.t.Encode(salt + inner)
	if err != nil {
		return "", fmt.Errorf("obfuscator: encode salted: %w", err)
	}
	return token, nil
}
