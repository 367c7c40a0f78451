// Package conversation matches spoken utterances against the command
// grammar and reports feedback to the user.
package conversation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/logger"
)

// Wildcard marks the free-text part of a template.
const Wildcard = "*"

// Command binds a spoken template to an intent. A template may contain
// one Wildcard; the text it captures becomes the intent payload.
type Command struct {
	Template string
	Intent   domain.IntentType
}

// DefaultCommands returns the Spanish grammar in match order.
func DefaultCommands() []Command {
	return []Command{
		{"Empieza la detección", domain.IntentStartDetection},
		{"Detén la detección", domain.IntentStopDetection},
		{"Abre el menú", domain.IntentOpenMenu},
		{"Cierra el menú", domain.IntentCloseMenu},
		{"Mostrar información nutricional", domain.IntentEnrich},
		{"Dame recetas", domain.IntentShowRecipes},
		{"Siguiente receta", domain.IntentNextRecipe},
		{"Receta anterior", domain.IntentPreviousRecipe},
		{"Muestra la preparación", domain.IntentTogglePreparation},
		{"Guarda la receta", domain.IntentSaveFavorite},
		{"Mi nombre es *", domain.IntentSetName},
		{"Nací el *", domain.IntentSetBirthDate},
		{"Mi fecha de nacimiento es *", domain.IntentSetBirthDate},
		{"Me gusta la comida *", domain.IntentSetCuisines},
		{"Mis cocinas favoritas son *", domain.IntentSetCuisines},
		{"Enviar registro", domain.IntentSubmitRegistration},
	}
}

type rule struct {
	cmd      Command
	regex    *regexp.Regexp
	wildcard bool
}

// Grammar is an ordered command list. Matching ignores case, accents,
// punctuation and repeated whitespace. Safe for concurrent use.
type Grammar struct {
	log   *logger.Logger
	rules []rule
}

// NewGrammar compiles cmds in order. It fails on a template with more
// than one wildcard or with no words.
func NewGrammar(log *logger.Logger, cmds ...Command) (*Grammar, error) {
	g := &Grammar{log: log}
	for _, c := range cmds {
		r, err := compile(c)
		if err != nil {
			return nil, err
		}
		g.rules = append(g.rules, r)
	}
	return g, nil
}

func compile(c Command) (rule, error) {
	parts := strings.Split(c.Template, Wildcard)
	if len(parts) > 2 {
		return rule{}, fmt.Errorf("conversation: template %q has more than one wildcard", c.Template)
	}

	var pattern strings.Builder
	pattern.WriteString("^")
	prefix := fold(parts[0]).text
	if prefix != "" {
		pattern.WriteString(regexp.QuoteMeta(prefix))
	}
	if len(parts) == 2 {
		if prefix != "" {
			pattern.WriteString(" ")
		}
		pattern.WriteString("(.+?)")
		if suffix := fold(parts[1]).text; suffix != "" {
			pattern.WriteString(" " + regexp.QuoteMeta(suffix))
		}
	} else if prefix == "" {
		return rule{}, fmt.Errorf("conversation: empty template")
	}
	pattern.WriteString("$")

	re, err := regexp.Compile(pattern.String())
	if err != nil {
		return rule{}, fmt.Errorf("conversation: compiling %q: %w", c.Template, err)
	}
	return rule{cmd: c, regex: re, wildcard: len(parts) == 2}, nil
}

// Match returns the intent of the first command that matches utterance.
// The wildcard capture keeps the original casing and accents.
func (g *Grammar) Match(utterance string) (*domain.Intent, bool) {
	f := fold(utterance)
	if f.text == "" {
		return nil, false
	}

	for _, r := range g.rules {
		m := r.regex.FindStringSubmatchIndex(f.text)
		if m == nil {
			continue
		}
		intent := &domain.Intent{Type: r.cmd.Intent}
		if r.wildcard && len(m) >= 4 {
			intent.Payload = f.original(utterance, m[2], m[3])
		}
		g.log.Debug("grammar: %q -> %s (payload=%q)", utterance, intent.Type, intent.Payload)
		return intent, true
	}

	g.log.Debug("grammar: no command for %q", utterance)
	return nil, false
}

// Commands returns the grammar in match order.
func (g *Grammar) Commands() []Command {
	out := make([]Command, len(g.rules))
	for i, r := range g.rules {
		out[i] = r.cmd
	}
	return out
}

// folded is a normalized utterance plus, for every byte of text, the
// byte span of the original rune it came from.
type folded struct {
	text  string
	start []int
	end   []int
}

// original maps a [from, to) span of f.text back to the original string.
func (f folded) original(src string, from, to int) string {
	if from >= to || to > len(f.start) {
		return ""
	}
	return strings.TrimSpace(src[f.start[from]:f.end[to-1]])
}

// fold lowercases s, strips accents and turns punctuation into spaces,
// collapsing runs of whitespace.
func fold(s string) folded {
	strip := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	var (
		b          strings.Builder
		f          folded
		pendingSep bool
	)
	emit := func(text string, from, to int) {
		for i := 0; i < len(text); i++ {
			f.start = append(f.start, from)
			f.end = append(f.end, to)
		}
		b.WriteString(text)
	}

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		start, end := i, i+size
		i = end

		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			pendingSep = b.Len() > 0
			continue
		}
		base, _, err := transform.String(strip, string(r))
		if err != nil {
			base = string(r)
		}
		if base == "" {
			continue // lone combining mark
		}
		if pendingSep {
			emit(" ", start, start)
			pendingSep = false
		}
		emit(strings.ToLower(base), start, end)
	}

	f.text = b.String()
	return f
}
