package lorelord

// PropsPerHand is how many prop cards each storyteller is dealt per round.
const PropsPerHand = 3

var defaultPrompts = []string{
	"Tell us about the worst vacation you have ever taken.",
	"Describe the strangest thing you have found in a secondhand store.",
	"Tell us about a time you were somewhere you were not supposed to be.",
	"Describe your most embarrassing moment in front of a crowd.",
	"Tell us about the best meal you have ever eaten.",
	"Describe a time an animal got the better of you.",
	"Tell us about a job you quit, or should have.",
	"Describe the most unusual gift you ever received.",
	"Tell us about a time you got hopelessly lost.",
	"Describe a celebrity encounter, real or imagined.",
	"Tell us about a rule you broke as a child.",
	"Describe the night everything went wrong.",
}

var defaultProps = []string{
	"a rubber duck",
	"a broken umbrella",
	"a wedding ring",
	"a parking ticket",
	"a goat",
	"a birthday cake",
	"a police officer",
	"a canoe",
	"a fake mustache",
	"a lottery ticket",
	"a grandmother",
	"a fire alarm",
	"a leather jacket",
	"a haunted house",
	"a karaoke machine",
	"a lost passport",
	"a bag of oranges",
	"a tuxedo",
	"a thunderstorm",
	"a talking parrot",
}

// Content is the pair of tables rounds draw from.
type Content struct {
	Prompts []string
	Props   []string
}

// DefaultContent returns the built-in prompt and prop tables.
func DefaultContent() Content {
	return Content{
		Prompts: defaultPrompts,
		Props:   defaultProps,
	}
}
