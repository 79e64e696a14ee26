package repository

import "github.com/quizquest/quizquest-go/internal/model"

// SeedLevels returns the built-in level pack used when no database is
// configured. Three levels, increasing difficulty, mixed time limits.
func SeedLevels() []model.Level {
	return []model.Level{
		{
			ID:    "warmup",
			Title: "Warm-up",
			Seq:   1,
			Tasks: []model.Task{
				{
					ID:       "warmup-1",
					Question: "Which planet is known as the Red Planet?",
					Options: []model.AnswerOption{
						{ID: "a", Text: "Venus"},
						{ID: "b", Text: "Mars", Correct: true},
						{ID: "c", Text: "Jupiter"},
					},
					Points:      10,
					MaxAttempts: 2,
					Explanation: "Iron oxide dust gives Mars its reddish color.",
				},
				{
					ID:       "warmup-2",
					Question: "Which of these are primary colors of light? Select all that apply.",
					Options: []model.AnswerOption{
						{ID: "a", Text: "Red", Correct: true},
						{ID: "b", Text: "Green", Correct: true},
						{ID: "c", Text: "Yellow"},
						{ID: "d", Text: "Blue", Correct: true},
					},
					TimeLimitSec: 30,
					Points:       15,
					MaxAttempts:  2,
					Explanation:  "Screens mix red, green and blue light to produce every other color.",
				},
			},
		},
		{
			ID:    "orbit",
			Title: "In Orbit",
			Seq:   2,
			Tasks: []model.Task{
				{
					ID:       "orbit-1",
					Question: "How long does light take to travel from the Sun to Earth?",
					Options: []model.AnswerOption{
						{ID: "a", Text: "8 seconds"},
						{ID: "b", Text: "About 8 minutes", Correct: true},
						{ID: "c", Text: "8 hours"},
					},
					TimeLimitSec: 20,
					Points:       20,
					MaxAttempts:  2,
					Explanation:  "At 300,000 km/s, the 150 million km trip takes roughly 8 minutes 20 seconds.",
				},
				{
					ID:       "orbit-2",
					Question: "Which moons orbit Jupiter? Select all that apply.",
					Options: []model.AnswerOption{
						{ID: "a", Text: "Europa", Correct: true},
						{ID: "b", Text: "Titan"},
						{ID: "c", Text: "Ganymede", Correct: true},
						{ID: "d", Text: "Phobos"},
					},
					TimeLimitSec: 45,
					Points:       25,
					MaxAttempts:  3,
					Explanation:  "Titan orbits Saturn and Phobos orbits Mars. Europa and Ganymede are Galilean moons.",
				},
				{
					ID:       "orbit-3",
					Question: "What force keeps the ISS in orbit?",
					Options: []model.AnswerOption{
						{ID: "a", Text: "Gravity", Correct: true},
						{ID: "b", Text: "Magnetism"},
						{ID: "c", Text: "Thrust from its engines"},
					},
					TimeLimitSec: 15,
					Points:       20,
					MaxAttempts:  1,
					Explanation:  "The ISS is in continuous free fall; gravity bends its path into an orbit.",
				},
			},
		},
		{
			ID:    "deep-space",
			Title: "Deep Space",
			Seq:   3,
			Tasks: []model.Task{
				{
					ID:       "deep-1",
					Question: "What is the closest star system to the Sun?",
					Options: []model.AnswerOption{
						{ID: "a", Text: "Sirius"},
						{ID: "b", Text: "Alpha Centauri", Correct: true},
						{ID: "c", Text: "Barnard's Star"},
					},
					TimeLimitSec: 20,
					Points:       30,
					MaxAttempts:  1,
					Explanation:  "Alpha Centauri lies about 4.37 light-years away; Proxima Centauri is its faint companion.",
				},
				{
					ID:       "deep-2",
					Question: "Which statements about black holes are true? Select all that apply.",
					Options: []model.AnswerOption{
						{ID: "a", Text: "Light cannot escape past the event horizon", Correct: true},
						{ID: "b", Text: "They emit Hawking radiation", Correct: true},
						{ID: "c", Text: "They vacuum up everything in the galaxy"},
					},
					TimeLimitSec: 60,
					Points:       40,
					MaxAttempts:  2,
					Explanation:  "A black hole's gravity is only irresistible inside the horizon; at a distance it behaves like any mass.",
				},
			},
		},
	}
}
