package prompt

import "strings"

// Campos substituíveis nos templates.
const (
	FieldPergunta   = "pergunta"
	FieldMotivo     = "motivo"
	FieldEstrategia = "estrategia"
)

// Template é um texto com marcadores {campo}. Marcadores sem valor ficam como estão.
type Template string

// Render substitui cada {campo} conhecido pelo valor correspondente em fields.
func (t Template) Render(fields map[string]string) string {
	pairs := make([]string, 0, len(fields)*2)
	for k, v := range fields {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(string(t))
}

// Pergunta é enviada como chegou.
const Pergunta Template = "{pergunta}"

const Estrategias Template = `Com base nos dados dos alunos que você recebeu anteriormente, sugira exatamente 6 estratégias para reduzir a evasão de alunos cujo motivo principal é: {motivo}.

Responda somente com um array JSON, sem texto antes ou depois e sem blocos de código markdown, no formato:
[
  {"titulo": "título curto da estratégia", "descricao": "descrição de como aplicar a estratégia", "impacto": "impacto esperado nos alunos"}
]

O array deve conter exatamente 6 objetos, cada um com os campos "titulo", "descricao" e "impacto" preenchidos.`

const AprofundarEstrategia Template = `Considere a estratégia que você sugeriu anteriormente: {estrategia}.

Explique essa estratégia com mais profundidade, usando os dados dos alunos que você recebeu, e liste as vantagens e as desvantagens de aplicá-la.`

// Builder monta o texto final enviado à sessão para cada operação.
type Builder struct {
	Ask       Template
	Suggest   Template
	Elaborate Template
}

// Default retorna o Builder com os templates de produção.
func Default() Builder {
	return Builder{
		Ask:       Pergunta,
		Suggest:   Estrategias,
		Elaborate: AprofundarEstrategia,
	}
}

func (b Builder) Question(pergunta string) string {
	return b.Ask.Render(map[string]string{FieldPergunta: pergunta})
}

func (b Builder) Strategies(motivo string) string {
	return b.Suggest.Render(map[string]string{FieldMotivo: motivo})
}

func (b Builder) Expand(estrategia string) string {
	return b.Elaborate.Render(map[string]string{FieldEstrategia: estrategia})
}
