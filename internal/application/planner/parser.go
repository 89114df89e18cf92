package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/outbound"
)

// ErrParse means no parser stage could recover a recipe list from the
// model output. It triggers catalog fallback for the slot.
var ErrParse = errors.New("could not parse generation output")

// CompletionMarker is the token the prompt asks the model to emit
// immediately before the final JSON array. Text after it is treated
// as the payload region.
const CompletionMarker = "===RECIPES==="

// StreamState tracks where a generation stream is.
type StreamState int

const (
	StateIdle StreamState = iota
	StateReasoning
	StateContent
	StateDone
	StateError
)

func (s StreamState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReasoning:
		return "reasoning"
	case StateContent:
		return "content"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// invalid transitions leave the collector in StateError.
var validTransitions = map[StreamState][]StreamState{
	StateIdle:      {StateReasoning, StateContent, StateDone},
	StateReasoning: {StateReasoning, StateContent, StateDone},
	StateContent:   {StateReasoning, StateContent, StateDone},
}

// ReasoningFunc observes reasoning text as it streams, for progress
// display. May be nil.
type ReasoningFunc func(delta string, start, stop bool)

// Collector folds a generation event stream into accumulated content
// text via an explicit state machine.
type Collector struct {
	state     StreamState
	content   strings.Builder
	reasoning strings.Builder
	onReason  ReasoningFunc
	err       error
}

// NewCollector starts in StateIdle.
func NewCollector(onReason ReasoningFunc) *Collector {
	return &Collector{state: StateIdle, onReason: onReason}
}

// State returns the current stream state.
func (c *Collector) State() StreamState { return c.state }

// Content returns all accumulated content text.
func (c *Collector) Content() string { return c.content.String() }

// Reasoning returns all accumulated reasoning text.
func (c *Collector) Reasoning() string { return c.reasoning.String() }

// Err returns the stream error, if the collector reached StateError.
func (c *Collector) Err() error { return c.err }

// Consume applies one event. Once Done or Error is reached further
// events are ignored.
func (c *Collector) Consume(ev outbound.GenerationEvent) {
	if c.state == StateDone || c.state == StateError {
		return
	}

	switch ev.Type {
	case outbound.EventBlockStart:
		if ev.Channel == outbound.ChannelReasoning {
			c.transition(StateReasoning)
			if c.onReason != nil {
				c.onReason("", true, false)
			}
		} else {
			c.transition(StateContent)
		}
	case outbound.EventTextDelta:
		if ev.Channel == outbound.ChannelReasoning {
			c.transition(StateReasoning)
			c.reasoning.WriteString(ev.Text)
			if c.onReason != nil {
				c.onReason(ev.Text, false, false)
			}
		} else {
			c.transition(StateContent)
			c.content.WriteString(ev.Text)
		}
	case outbound.EventBlockStop:
		if ev.Channel == outbound.ChannelReasoning && c.onReason != nil {
			c.onReason("", false, true)
		}
	case outbound.EventDone:
		c.transition(StateDone)
	case outbound.EventError:
		c.state = StateError
		c.err = ev.Err
		if c.err == nil {
			c.err = outbound.ErrGenerationService
		}
	}
}

func (c *Collector) transition(next StreamState) {
	if c.state == next {
		return
	}
	for _, allowed := range validTransitions[c.state] {
		if allowed == next {
			c.state = next
			return
		}
	}
	prev := c.state
	c.state = StateError
	c.err = fmt.Errorf("%w: invalid stream transition %s -> %s", outbound.ErrGenerationService, prev, next)
}

// Parser recovers recipe lists from raw model text.
type Parser struct {
	logger *zap.Logger
}

// NewParser builds a parser.
func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger.Named("parser")}
}

// fenceRe strips ```json ... ``` style delimiters.
var fenceRe = regexp.MustCompile("(?s)```(?:json|JSON)?")

// objectRe is the permissive last-resort extraction: any brace span
// containing a "name" key.
var objectRe = regexp.MustCompile(`(?s)\{[^{}]*"name"[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)

// ParseRecipes applies the recovery stages in order and returns the
// first stage's repaired, validated items. ErrParse if every stage
// comes up empty.
func (p *Parser) ParseRecipes(raw string) ([]ParsedRecipe, error) {
	payload := raw
	if idx := strings.LastIndex(raw, CompletionMarker); idx >= 0 {
		payload = raw[idx+len(CompletionMarker):]
	}
	payload = strings.TrimSpace(fenceRe.ReplaceAllString(payload, ""))

	stages := []struct {
		name string
		fn   func(string) []ParsedRecipe
	}{
		{"direct", p.parseDirect},
		{"balanced_scan", p.parseBalanced},
		{"regex", func(string) []ParsedRecipe { return p.parseRegex(raw) }},
	}

	for _, stage := range stages {
		items := stage.fn(payload)
		valid := repairAndFilter(items, p.logger)
		if len(valid) > 0 {
			p.logger.Debug("parsed generation output",
				zap.String("stage", stage.name), zap.Int("recipes", len(valid)))
			return valid, nil
		}
	}
	return nil, ErrParse
}

// parseDirect tries the stripped payload as a JSON array, or as a
// single object.
func (p *Parser) parseDirect(payload string) []ParsedRecipe {
	var items []ParsedRecipe
	if err := json.Unmarshal([]byte(payload), &items); err == nil {
		return items
	}
	var single ParsedRecipe
	if err := json.Unmarshal([]byte(payload), &single); err == nil && single.Name != "" {
		return []ParsedRecipe{single}
	}
	var wrapper struct {
		Recipes []ParsedRecipe `json:"recipes"`
	}
	if err := json.Unmarshal([]byte(payload), &wrapper); err == nil && len(wrapper.Recipes) > 0 {
		return wrapper.Recipes
	}
	return nil
}

// parseBalanced scans for spans whose bracket depth returns to zero
// and tries each as JSON, continuing past spans that fail to parse.
func (p *Parser) parseBalanced(payload string) []ParsedRecipe {
	for start := 0; start < len(payload); start++ {
		open := payload[start]
		if open != '{' && open != '[' {
			continue
		}
		end := balancedEnd(payload, start)
		if end < 0 {
			continue
		}
		span := payload[start : end+1]
		if items := p.parseDirect(span); len(items) > 0 {
			return items
		}
		// Skip past this span; nested candidates inside it already
		// failed as part of the whole.
		start = end
	}
	return nil
}

// balancedEnd returns the index where the bracket opened at start
// closes, ignoring brackets inside JSON strings. -1 if unbalanced.
func balancedEnd(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseRegex extracts individual objects from the raw, unstripped
// text. Last resort.
func (p *Parser) parseRegex(raw string) []ParsedRecipe {
	var items []ParsedRecipe
	for _, match := range objectRe.FindAllString(raw, -1) {
		var item ParsedRecipe
		if err := json.Unmarshal([]byte(match), &item); err == nil {
			items = append(items, item)
		}
	}
	return items
}

func repairAndFilter(items []ParsedRecipe, logger *zap.Logger) []ParsedRecipe {
	valid := make([]ParsedRecipe, 0, len(items))
	for i := range items {
		if items[i].Valid() {
			valid = append(valid, items[i])
			continue
		}
		items[i].Repair()
		if items[i].Valid() {
			valid = append(valid, items[i])
			continue
		}
		logger.Debug("dropping unrepairable recipe item", zap.String("name", items[i].Name))
	}
	return valid
}

// FlexInt tolerates numbers arriving as strings or floats; anything
// unparseable becomes 0.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexInt(n)
		return nil
	}
	var fl float64
	if err := json.Unmarshal(data, &fl); err == nil {
		*f = FlexInt(int(fl))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			*f = FlexInt(n)
			return nil
		}
		if fl, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*f = FlexInt(int(fl))
			return nil
		}
	}
	*f = 0
	return nil
}

// FlexFloat is FlexInt's float counterpart.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var fl float64
	if err := json.Unmarshal(data, &fl); err == nil {
		*f = FlexFloat(fl)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if fl, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*f = FlexFloat(fl)
			return nil
		}
	}
	*f = 0
	return nil
}

// FlexStrings accepts either a JSON array of strings or a single bare
// string, which becomes a one-element list.
type FlexStrings []string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexStrings) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			*f = nil
		} else {
			*f = []string{s}
		}
		return nil
	}
	*f = nil
	return nil
}

// FlexIngredient accepts a structured object or a bare string like
// "salt", which becomes {name: "salt", quantity: 1, unit: ""}.
type FlexIngredient struct {
	Name     string    `json:"name"`
	Quantity FlexFloat `json:"quantity"`
	Unit     string    `json:"unit"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexIngredient) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.Name = strings.TrimSpace(s)
		f.Quantity = 1
		f.Unit = ""
		return nil
	}
	type plain FlexIngredient
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*f = FlexIngredient(p)
	return nil
}

// FlexIngredients accepts an array of ingredients or a single bare
// string.
type FlexIngredients []FlexIngredient

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexIngredients) UnmarshalJSON(data []byte) error {
	var list []FlexIngredient
	if err := json.Unmarshal(data, &list); err == nil {
		*f = list
		return nil
	}
	var single FlexIngredient
	if err := json.Unmarshal(data, &single); err == nil && single.Name != "" {
		*f = []FlexIngredient{single}
		return nil
	}
	*f = nil
	return nil
}

// ParsedNutrition tolerates missing or string-typed numbers.
type ParsedNutrition struct {
	Calories FlexInt   `json:"calories"`
	Protein  FlexFloat `json:"protein"`
	Carbs    FlexFloat `json:"carbs"`
	Fat      FlexFloat `json:"fat"`
}

// ParsedRecipe is one item recovered from model output.
type ParsedRecipe struct {
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Cuisine         string           `json:"cuisine"`
	Ingredients     FlexIngredients  `json:"ingredients"`
	Instructions    FlexStrings      `json:"instructions"`
	PrepTimeMinutes FlexInt          `json:"prep_time_minutes"`
	CookTimeMinutes FlexInt          `json:"cook_time_minutes"`
	Servings        FlexInt          `json:"servings"`
	Tags            FlexStrings      `json:"tags"`
	Nutrition       *ParsedNutrition `json:"nutrition"`
}

// Valid applies the acceptance rule: non-empty name, ingredients, and
// instructions.
func (r *ParsedRecipe) Valid() bool {
	if strings.TrimSpace(r.Name) == "" {
		return false
	}
	if len(r.Ingredients) == 0 || len(r.Instructions) == 0 {
		return false
	}
	for _, ing := range r.Ingredients {
		if strings.TrimSpace(ing.Name) == "" {
			return false
		}
	}
	return true
}

// Repair fills defaults for missing fields. Re-validation decides
// whether the item survives.
func (r *ParsedRecipe) Repair() {
	if strings.TrimSpace(r.Name) == "" {
		r.Name = "Untitled Recipe"
	}
	kept := r.Ingredients[:0]
	for _, ing := range r.Ingredients {
		if strings.TrimSpace(ing.Name) == "" {
			continue
		}
		if ing.Quantity <= 0 {
			ing.Quantity = 1
		}
		kept = append(kept, ing)
	}
	r.Ingredients = kept
	if r.Nutrition == nil {
		r.Nutrition = &ParsedNutrition{}
	}
	if r.Servings <= 0 {
		r.Servings = 4
	}
}
