package prompt

import _ "embed"

// Template files embedded at compile time
var (
	//go:embed templates/continue-baseline-1.txt
	baselineTemplate1 string

	//go:embed templates/continue-baseline-2.txt
	baselineTemplate2 string

	//go:embed templates/continue-baseline-3.txt
	baselineTemplate3 string

	//go:embed templates/continue-loop-1.txt
	loopTemplate1 string

	//go:embed templates/continue-loop-2.txt
	loopTemplate2 string

	//go:embed templates/continue-loop-3.txt
	loopTemplate3 string

	//go:embed templates/ultrawork-reinforce-1.txt
	ultraworkTemplate1 string

	//go:embed templates/ultrawork-reinforce-2.txt
	ultraworkTemplate2 string

	//go:embed templates/progress-reminder.txt
	progressReminderTemplate string

	//go:embed templates/review.txt
	reviewTemplate string

	//go:embed templates/verify-feedback.txt
	verifyFeedbackTemplate string
)

// Variant pools. Selection is iteration-indexed so the same iteration always
// yields the same variant.
var (
	baselineVariants  = []string{baselineTemplate1, baselineTemplate2, baselineTemplate3}
	loopVariants      = []string{loopTemplate1, loopTemplate2, loopTemplate3}
	ultraworkVariants = []string{ultraworkTemplate1, ultraworkTemplate2}
)
