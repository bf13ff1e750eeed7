// Package suggestion valida a resposta de /estrategias: um array JSON com
// exatamente seis sugestões, cada uma com titulo, descricao e impacto.
package suggestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// Expected é a quantidade de sugestões pedida ao modelo.
const Expected = 6

// Suggestion é uma estratégia sugerida pelo modelo.
type Suggestion struct {
	Titulo    string `json:"titulo"`
	Descricao string `json:"descricao"`
	Impacto   string `json:"impacto"`
}

const schemaJSON = `{
  "type": "array",
  "minItems": 6,
  "maxItems": 6,
  "items": {
    "type": "object",
    "required": ["titulo", "descricao", "impacto"],
    "properties": {
      "titulo":    {"type": "string", "minLength": 1},
      "descricao": {"type": "string", "minLength": 1},
      "impacto":   {"type": "string", "minLength": 1}
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("suggestions.json", strings.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile("suggestions.json")
	})
	return schema, schemaErr
}

// ErrNoJSON indica que a resposta não contém nenhum array JSON.
var ErrNoJSON = errors.New("suggestion: no json array in response")

// Parse extrai e valida as sugestões de raw.
func Parse(raw string) ([]Suggestion, error) {
	body, ok := Extract(raw)
	if !ok {
		return nil, ErrNoJSON
	}
	if !gjson.Valid(body) {
		return nil, errors.New("suggestion: invalid json")
	}

	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("suggestion: compile schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("suggestion: decode: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("suggestion: schema: %w", err)
	}

	out := make([]Suggestion, 0, Expected)
	var walkErr error
	gjson.Parse(body).ForEach(func(_, value gjson.Result) bool {
		s := Suggestion{
			Titulo:    strings.TrimSpace(value.Get("titulo").String()),
			Descricao: strings.TrimSpace(value.Get("descricao").String()),
			Impacto:   strings.TrimSpace(value.Get("impacto").String()),
		}
		if s.Titulo == "" || s.Descricao == "" || s.Impacto == "" {
			walkErr = fmt.Errorf("suggestion #%d has blank fields", len(out)+1)
			return false
		}
		out = append(out, s)
		return true
	})
	if walkErr != nil {
		return nil, fmt.Errorf("suggestion: %w", walkErr)
	}
	return out, nil
}
