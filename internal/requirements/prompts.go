package requirements

import (
	"fmt"
	"strings"
	"unicode"
)

const dialogueSystemPrompt = `You are an expert assistant for designing Dynamics 365 plug-ins.

1. Open by asking: "What is the business logic you want to implement in Dynamics 365?" Let the user describe the need in their own words.

2. From the user's replies, identify:
   - the table (entity) involved, for example contact, account or a custom table
   - the trigger message: create, update, delete or assign
   - the columns (fields) the plug-in reads or writes
   - the business rule itself

3. When the table, trigger or columns are missing or unclear, ask a follow-up question for one missing piece at a time. Never ask again for something already provided.

4. Once all four are known, stop. Do not summarize and do not ask for confirmation; the user confirms in the interface.

Always extract as much as possible from what the user already said before asking for more.`

const codeSystemPrompt = `You are an expert Dynamics 365 plug-in code generator.
The user provides every requirement. Output only the C# plug-in code, without explanations, following current Dataverse SDK conventions for .NET.`

// openingCue starts a conversation; the oracle replies with its first question.
const openingCue = "Begin the requirements conversation."

const noChangeRequest = "Please type a change request or restart."

func codePrompt(rec Record, advice string) string {
	return "Generate a Dynamics 365 plug-in in C# with the following specs:\n" +
		"Entity: " + rec.Entity + "\n" +
		"Trigger: " + rec.Trigger + "\n" +
		"Fields: " + rec.Fields + "\n" +
		"Logic: " + rec.Logic + "\n" +
		advice
}

func regeneratePrompt(last CodeRecord, newLogic string) string {
	return fmt.Sprintf("Regenerate this plugin with new logic:\n\nEntity: %s\nEvent: %s\nFields: %s\nOld Logic: %s\nNew Logic: %s",
		last.Entity, last.Trigger, last.Fields, last.Logic, newLogic)
}

func summary(rec Record) string {
	var b strings.Builder
	b.WriteString("Just to summarize what you have provided so far:\n\n")
	fmt.Fprintf(&b, "- **Entity**: %s\n", rec.Entity)
	fmt.Fprintf(&b, "- **Trigger Event**: %s\n", rec.Trigger)
	fmt.Fprintf(&b, "- **Fields Involved**: %s\n", rec.Fields)
	fmt.Fprintf(&b, "- **Business Logic**: %s\n\n", rec.Logic)
	b.WriteString("Click **Confirm** or reply \"confirm\" to generate the code.")
	return b.String()
}

// pluginName builds a class-style name such as AccountUpdatePlugin.
func pluginName(rec Record) string {
	name := pascal(rec.Entity) + pascal(rec.Trigger)
	if name == "" {
		return "UnknownPlugin"
	}
	return name + "Plugin"
}

func pascal(s string) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}
