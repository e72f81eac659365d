package executor

import (
	"strings"

	"github.com/rasad8686/agentcore/types"
)

// classificationRule maps message substrings to a classified error code.
// Rules are scanned in order; the first hit wins.
type classificationRule struct {
	code     types.ErrorCode
	patterns []string
}

var classificationRules = []classificationRule{
	{types.ErrCodeRateLimit, []string{"rate limit", "too many requests", "429"}},
	{types.ErrCodeNetwork, []string{
		"connection refused", "connection reset", "broken pipe",
		"timeout", "timed out", "no such host", "network", "econnrefused", "etimedout",
	}},
	{types.ErrCodeAuth, []string{"unauthorized", "forbidden", "invalid api key", "authentication", "401", "403"}},
	{types.ErrCodeMissing, []string{"not found", "404", "no such"}},
}

// ClassifyError maps an error's message onto one of the classified runtime
// codes. Unmatched errors classify as GENERIC.
func ClassifyError(err error) types.ErrorCode {
	if err == nil {
		return types.ErrCodeGeneric
	}
	msg := strings.ToLower(err.Error())
	for _, rule := range classificationRules {
		for _, pattern := range rule.patterns {
			if strings.Contains(msg, pattern) {
				return rule.code
			}
		}
	}
	return types.ErrCodeGeneric
}
