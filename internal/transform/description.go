package transform

import (
	"fmt"
	"strings"
)

// Detail carries the scraped attributes the enriched description can draw
// on. All fields are optional; the zero value means "nothing scraped".
type Detail struct {
	LongDescription string
	PackSize        int
	MeterModel      string
}

// Rule pairs a lowercase title keyword with the template applied when the
// keyword is present. Rules are evaluated in order and the first match wins.
type Rule struct {
	Keyword  string
	Intro    string
	Features []string
}

// rules is the ordered template list for the store's product lines. Products
// matching none of the keywords fall back to the basic description.
var rules = []Rule{
	{
		Keyword: "tiras reactivas",
		Intro:   "Tiras reactivas para medición precisa de glucosa en sangre.",
		Features: []string{
			"Compatible con medidores Accu-Chek",
			"Resultados rápidos y precisos",
			"Fácil manejo y aplicación",
			"Tecnología avanzada de biosensores",
		},
	},
	{
		Keyword: "lancetas",
		Intro:   "Lancetas estériles diseñadas para punción digital cómoda.",
		Features: []string{
			"Diseño optimizado para minimizar el dolor",
			"Estériles y de uso único",
			"Compatible con dispositivos Accu-Chek Softclix",
			"Muestra de sangre adecuada con mínima molestia",
		},
	},
	{
		Keyword: "medidor",
		Intro:   "Medidor de glucosa en sangre para monitoreo diabético diario.",
		Features: []string{
			"Pantalla grande y fácil lectura",
			"Memoria para almacenar resultados",
			"Rápido tiempo de medición",
			"Tecnología de precisión médica",
		},
	},
	{
		Keyword: "glucómetro",
		Intro:   "Glucómetro digital para control preciso de diabetes.",
		Features: []string{
			"Mediciones en segundos",
			"Pantalla digital clara",
			"Almacenamiento de resultados",
			"Fácil calibración automática",
		},
	},
	{
		Keyword: "kit",
		Intro:   "Kit completo para monitoreo de glucosa en sangre.",
		Features: []string{
			"Todo lo necesario para comenzar",
			"Incluye medidor y accesorios",
			"Ideal para nuevos usuarios",
			"Garantía y soporte técnico",
		},
	},
	{
		Keyword: "pack",
		Intro:   "Pack económico con múltiples productos para el cuidado diabético.",
		Features: []string{
			"Ahorro significativo vs compra individual",
			"Productos complementarios incluidos",
			"Stock suficiente para uso prolongado",
			"Calidad garantizada Accu-Chek",
		},
	},
}

// BasicDescription is the title with a single trailing period. Idempotent:
// a title that already ends in "." is returned unchanged.
func BasicDescription(title string) string {
	title = strings.TrimSpace(title)
	if strings.HasSuffix(title, ".") {
		return title
	}
	return title + "."
}

// EnrichedDescription composes a longer description from the first matching
// title rule, folding in scraped detail where present. With no matching rule
// it falls back to the scraped long description, then to the basic form.
func EnrichedDescription(title string, detail Detail) string {
	rule, ok := matchRule(title)
	if !ok {
		if long := strings.TrimSpace(detail.LongDescription); long != "" {
			return BasicDescription(long)
		}
		return BasicDescription(title)
	}

	var b strings.Builder
	b.WriteString(rule.Intro)
	if long := strings.TrimSpace(detail.LongDescription); len(long) > 20 {
		b.WriteString(" ")
		b.WriteString(long)
	}

	features := rule.Features
	if detail.PackSize > 0 {
		features = append(features[:len(features):len(features)],
			fmt.Sprintf("Contenido: %d piezas", detail.PackSize))
	}
	if model := strings.TrimSpace(detail.MeterModel); model != "" {
		features = append(features[:len(features):len(features)],
			"Compatible con "+model)
	}
	b.WriteString(" Características: ")
	b.WriteString(strings.Join(features, " • "))
	b.WriteString(".")
	return b.String()
}

func matchRule(title string) (Rule, bool) {
	lower := strings.ToLower(title)
	for _, r := range rules {
		if strings.Contains(lower, r.Keyword) {
			return r, true
		}
	}
	return Rule{}, false
}
