package prompt

import (
	_ "embed"
)

//go:embed templates/foundation.md
var foundationTemplate string

//go:embed templates/exploration.md
var explorationTemplate string

//go:embed templates/definition.md
var definitionTemplate string

//go:embed templates/planning.md
var planningTemplate string

//go:embed templates/execution_check_in.md
var executionCheckInTemplate string

//go:embed templates/execution_return_briefing.md
var executionReturnBriefingTemplate string

//go:embed templates/execution_project_review.md
var executionProjectReviewTemplate string

//go:embed templates/execution_retrospective.md
var executionRetrospectiveTemplate string

//go:embed templates/summary.md
var summaryTemplate string
