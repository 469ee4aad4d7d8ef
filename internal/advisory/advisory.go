// Package advisory describes which entity images a plug-in step can read for
// a given message and pipeline stage.
package advisory

import (
	"fmt"
	"strings"
)

// Stage is a plug-in execution pipeline stage.
type Stage string

const (
	PreValidation Stage = "PreValidation"
	PreOperation  Stage = "PreOperation"
	PostOperation Stage = "PostOperation"
)

// Stages lists the pipeline stages in execution order.
var Stages = []Stage{PreValidation, PreOperation, PostOperation}

// ParseStage matches s against the known stages, ignoring case.
func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown plugin stage %q", s)
}

// Suggestion says which images are available for a message at a stage.
type Suggestion struct {
	PreImage    bool   `json:"pre_image_available"`
	PostImage   bool   `json:"post_image_available"`
	Recommended string `json:"recommended"`
}

type images struct{ pre, post bool }

var imageTable = map[string]map[Stage]images{
	"create": {
		PostOperation: {post: true},
	},
	"update": {
		PreOperation:  {pre: true},
		PostOperation: {pre: true, post: true},
	},
	"delete": {
		PreOperation:  {pre: true},
		PostOperation: {pre: true},
	},
	"assign": {
		PreOperation:  {pre: true},
		PostOperation: {pre: true, post: true},
	},
}

const nonStandard = "Not a standard combination. Check plugin docs."

// Suggest looks up the images available to message at stage.
func Suggest(message string, stage Stage) Suggestion {
	stages, ok := imageTable[strings.ToLower(message)]
	if !ok || !isKnown(stage) {
		return Suggestion{Recommended: nonStandard}
	}
	avail := stages[stage]

	var rec []string
	if avail.pre {
		rec = append(rec, "Use Pre-Image if you need previous values.")
	}
	if avail.post {
		rec = append(rec, "Use Post-Image for values after operation.")
	}
	return Suggestion{
		PreImage:    avail.pre,
		PostImage:   avail.post,
		Recommended: strings.Join(rec, " "),
	}
}

func isKnown(stage Stage) bool {
	for _, st := range Stages {
		if st == stage {
			return true
		}
	}
	return false
}

var guidelines = map[Stage]string{
	PreValidation: "Pre-Validation Stage:\n" +
		"- No Pre-Image (the operation has not started)\n" +
		"- No Post-Image\n" +
		"Images are rarely useful here; use this stage for early validation only.",
	PreOperation: "Pre-Operation Stage:\n" +
		"- Pre-Image available (data before the operation)\n" +
		"- Post-Image not available yet\n" +
		"Use the Pre-Image to compare prior values or validate before commit.",
	PostOperation: "Post-Operation Stage:\n" +
		"- Pre-Image available (data before the operation)\n" +
		"- Post-Image available (data after the operation)\n" +
		"Use both images for audit, integration or checking committed changes.",
}

// Guideline explains image availability at stage.
func Guideline(stage Stage) string {
	if g, ok := guidelines[stage]; ok {
		return g
	}
	return "Unknown plugin stage. Please specify PreValidation, PreOperation, or PostOperation."
}

// Advice is the block appended to a code-generation prompt for message at stage.
func Advice(message string, stage Stage) string {
	return fmt.Sprintf("\n\n---\n%s\n\nImage Suggestion: %s\n", Guideline(stage), Suggest(message, stage).Recommended)
}
