package prompts

import _ "embed"

//go:embed judge/system.md
var JudgeSystemPrompt string

//go:embed judge/evaluate.md.tmpl
var JudgeEvaluateTemplate string
