package llm

import (
	"fmt"
	"strings"

	"github.com/evalmate/evalmate/internal/fusion"
)

// StructuredSystem is the system prompt for per-criterion scoring calls.
const StructuredSystem = `You are a strict, fair grader. You evaluate one rubric criterion at a time against a student submission.
Respond with a single JSON object and nothing else. The object has an "items" array with exactly one entry:
{
  "items": [{
    "rubric_item_id": "<the criterion id you were given>",
    "score": <number 0-100>,
    "evidence": "<verbatim or closely paraphrased evidence from the submission>",
    "evaluation": "<your judgment of how well the criterion is met>",
    "completeness_percentage": <number 0-100>,
    "strengths": "<what the student did well for this criterion>",
    "gaps": "<what is missing or weak>",
    "guidance": "<concrete advice to improve>",
    "significance": "<why this criterion matters for the assignment>",
    "evidence_block_ids": ["<block ids the evidence came from>"]
  }]
}
Only reference block ids from the provided list. Do not invent ids. Do not wrap the JSON in markdown fences.`

// NarrativeSystem is the system prompt for whole-submission prose feedback.
// It forbids scores so narrative output cannot be confused with grades.
const NarrativeSystem = `You are a supportive writing mentor reviewing a student submission against a rubric.
Respond with a single JSON object and nothing else, with exactly these fields:
{
  "evaluation": "<overall assessment of the submission in prose>",
  "strengths": "<what the submission does well>",
  "gaps": "<where it falls short of the rubric>",
  "guidance": "<specific, actionable next steps>"
}
Do not assign numeric scores or grades. Do not wrap the JSON in markdown fences.`

// StructuredUser renders the user prompt for scoring one rubric item. The
// content slice is the criterion-relevant portion of the submission chosen
// upstream.
func StructuredUser(fc fusion.Context, item fusion.ItemSnapshot, contentSlice string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Criterion\nid: %s\ntitle: %s\ndescription: %s\ncategory: %s\nweight: %.2f\n\n",
		item.ID, item.Title, item.Description, item.Criterion, item.Weight)
	fmt.Fprintf(&sb, "## Question\n%s\n\n", fc.QuestionText)
	fmt.Fprintf(&sb, "## Submission (relevant excerpt)\n%s\n\n", contentSlice)
	writeVisuals(&sb, fc.Visuals)
	fmt.Fprintf(&sb, "## Available block ids\n%s\n\n", strings.Join(fc.BlockIDs, ", "))
	sb.WriteString("Score this single criterion now.")
	return sb.String()
}

// NarrativeUser renders the user prompt for whole-submission narrative
// feedback. The full rubric rides along so the prose can reference every
// criterion.
func NarrativeUser(fc fusion.Context) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Question\n%s\n\n", fc.QuestionText)
	fmt.Fprintf(&sb, "## Submission\n%s\n\n", fc.SubmissionText)
	writeVisuals(&sb, fc.Visuals)
	sb.WriteString("## Rubric\n")
	for _, it := range fc.Items {
		fmt.Fprintf(&sb, "- %s (%.0f%%): %s\n", it.Title, it.Weight*100, it.Description)
	}
	sb.WriteString("\nWrite your narrative review now.")
	return sb.String()
}

func writeVisuals(sb *strings.Builder, visuals []fusion.Visual) {
	if len(visuals) == 0 {
		return
	}
	sb.WriteString("## Visuals\n")
	for _, v := range visuals {
		fmt.Fprintf(sb, "- [%s] %s: %s\n", v.ID, v.Type, v.Caption)
		if v.OCRText != "" {
			fmt.Fprintf(sb, "  recognized text: %s\n", v.OCRText)
		}
	}
	sb.WriteString("\n")
}
