package session

import "math/rand/v2"

// RandomizeOptions controls per-session ordering.
type RandomizeOptions struct {
	ShuffleQuestions bool `json:"shuffle_questions"`
	ShuffleOptions   bool `json:"shuffle_options"`
	MaxQuestions     int  `json:"max_questions"` // <= 0 keeps all
}

// Randomizer produces a session's question order. A nil rng uses the
// unseeded global source, so every call yields a fresh order.
type Randomizer struct {
	rng *rand.Rand
}

// NewRandomizer returns a randomizer drawing from rng (nil for the global source).
func NewRandomizer(rng *rand.Rand) *Randomizer {
	return &Randomizer{rng: rng}
}

// Randomize returns a new slice; the input and its option slices are never
// modified. Questions are shuffled before truncation so MaxQuestions picks a
// random subset.
func (r *Randomizer) Randomize(questions []Question, opts RandomizeOptions) []Question {
	out := make([]Question, len(questions))
	copy(out, questions)

	if opts.ShuffleQuestions {
		r.shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}

	if opts.MaxQuestions > 0 && opts.MaxQuestions < len(out) {
		out = out[:opts.MaxQuestions]
	}

	for i := range out {
		if len(out[i].Options) == 0 {
			continue
		}
		options := make([]Option, len(out[i].Options))
		copy(options, out[i].Options)
		if opts.ShuffleOptions {
			r.shuffle(len(options), func(a, b int) { options[a], options[b] = options[b], options[a] })
		}
		out[i].Options = options
	}

	return out
}

// shuffle is Fisher-Yates.
func (r *Randomizer) shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, r.intN(i+1))
	}
}

func (r *Randomizer) intN(n int) int {
	if r.rng != nil {
		return r.rng.IntN(n)
	}
	return rand.IntN(n)
}

// Randomize is a convenience wrapper over the global source.
func Randomize(questions []Question, opts RandomizeOptions) []Question {
	return NewRandomizer(nil).Randomize(questions, opts)
}
