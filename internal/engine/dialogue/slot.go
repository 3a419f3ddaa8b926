package dialogue

// Kind selects how a slot interprets a spoken answer.
type Kind string

const (
	// KindFreeText stores the normalized transcript verbatim.
	KindFreeText Kind = "free_text"

	// KindEnumerated resolves the answer against a fixed option list,
	// defaulting to the slot's fallback when nothing matches.
	KindEnumerated Kind = "enumerated"

	// KindDate resolves the answer through the date-phrase resolver, leaving
	// the field unset when the phrase cannot be resolved.
	KindDate Kind = "date"
)

// Slot is one question in the ordered slot-filling flow. Slots are immutable
// definitions, fixed at engine configuration time.
type Slot struct {
	// ID names the slot for logging.
	ID string

	// Prompt is spoken when the slot is asked.
	Prompt string

	// Reprompt is the corrective prompt spoken when a required slot receives
	// a skip or empty answer.
	Reprompt string

	// Field is the task-draft field this slot fills: one of "title",
	// "description", "priority", "category", "due_date".
	Field string

	// Kind selects the answer interpretation.
	Kind Kind

	// Options lists the recognised values for KindEnumerated, in resolution
	// order.
	Options []string

	// Fallback is stored when a KindEnumerated answer matches no option.
	Fallback string

	// Required slots cannot be skipped; the engine re-asks them.
	Required bool

	// Ack is the acknowledgement template, spoken concatenated with the
	// stored value.
	Ack string
}

// DefaultSlots returns the standard task-creation question sequence.
func DefaultSlots() []Slot {
	return []Slot{
		{
			ID:       "title",
			Prompt:   "What should the task be called?",
			Reprompt: "Every task needs a title. What should it be called?",
			Field:    "title",
			Kind:     KindFreeText,
			Required: true,
			Ack:      "Title set to",
		},
		{
			ID:     "description",
			Prompt: "Any details to add? Say skip to leave it out.",
			Field:  "description",
			Kind:   KindFreeText,
			Ack:    "Noted:",
		},
		{
			ID:       "priority",
			Prompt:   "What priority: low, medium, or high?",
			Field:    "priority",
			Kind:     KindEnumerated,
			Options:  []string{"low", "medium", "high"},
			Fallback: "medium",
			Ack:      "Priority set to",
		},
		{
			ID:       "category",
			Prompt:   "Which category: work, personal, shopping, or health?",
			Field:    "category",
			Kind:     KindEnumerated,
			Options:  []string{"work", "personal", "shopping", "health"},
			Fallback: "personal",
			Ack:      "Filed under",
		},
		{
			ID:     "due_date",
			Prompt: "When is it due? You can say today, tomorrow, next week, or a weekday.",
			Field:  "due_date",
			Kind:   KindDate,
			Ack:    "Due",
		},
	}
}
