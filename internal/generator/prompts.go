package generator

import (
	"fmt"
	"strings"

	"github.com/Smackface/go-easy-apply/internal/form"
)

// maxContext bounds the job description sent with each question.
const maxContext = 6000

const systemMessage = "You are a job applicant filling in an online job application. " +
	"Answer each question truthfully and only from the applicant profile below. " +
	"Keep answers short: a number for numeric questions, a single option label for choices, " +
	"Yes or No for yes/no questions, and one or two sentences for free text. " +
	"If the profile does not contain the answer, reply with an empty answer rather than guessing.\n\n" +
	"Applicant profile:\n"

func systemPrompt(profile string) string {
	return systemMessage + strings.TrimSpace(profile)
}

func userPrompt(q form.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", strings.TrimSpace(q.Text))
	if q.Kind != "" {
		fmt.Fprintf(&b, "Field type: %s\n", q.Kind)
	}
	if len(q.Options) > 0 {
		b.WriteString("Choose exactly one of these options:\n")
		for _, o := range q.Options {
			fmt.Fprintf(&b, "- %s\n", o)
		}
	}
	if ctx := strings.TrimSpace(q.Context); ctx != "" {
		if len(ctx) > maxContext {
			ctx = ctx[:maxContext]
		}
		fmt.Fprintf(&b, "\nJob description:\n%s\n", ctx)
	}
	return b.String()
}
