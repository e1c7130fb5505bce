package learnenv

import "fmt"

var LevelNames = [MaxLevel + 1]string{
	"Beginner", "Basic", "Intermediate", "Advanced", "Fluent",
}

var vocabularyByLevel = [MaxLevel + 1][]string{
	{"Muraho", "Amakuru"},
	{"Mwaramutse", "Ndagukunda"},
	{"Ndashaka kugura", "Umuryango"},
	{"Ndategereje kuzabona", "Kubera iki"},
	{"Gukoresha neza ururimi", "Gusangira ibitekerezo"},
}

var grammarByLevel = [MaxLevel + 1]string{
	"Basic greetings", "Simple present tense", "Past tense",
	"Conditionals", "Idiomatic expressions",
}

var culturalContexts = [MaxLevel + 1]string{
	"Greetings etiquette", "Family routines", "Traditional celebrations",
	"Historical contexts", "Cultural nuances",
}

var conversationTopics = [MaxLevel + 1]string{
	"Greetings", "Daily activities", "Personal interests",
	"Current events", "Abstract concepts",
}

func LevelName(level int) string {
	if level < 0 || level > MaxLevel {
		return "Unknown"
	}
	return LevelNames[level]
}

// Lesson describes what practicing a at the given level covers.
func Lesson(level int, a Action) string {
	if level < 0 || level > MaxLevel {
		return ""
	}
	switch a {
	case Vocabulary:
		words := vocabularyByLevel[level]
		return fmt.Sprintf("Vocabulary: %s, %s", words[0], words[1])
	case Conversation:
		return "Conversation: " + conversationTopics[level]
	case Grammar:
		return "Grammar: " + grammarByLevel[level]
	case Culture:
		return "Culture: " + culturalContexts[level]
	}
	return ""
}
