package pipeline

// BuildRecipe assembles the step list for a run. Two shapes exist. Discovery
// collects candidates from the trackers and qualifies them by history.
// Pre-qualified mode (Params.IDs set) trusts the caller's item list and only
// fetches the metadata needed for the report. Optional steps appear only when
// their collaborator is wired in Deps.
func BuildRecipe(params Params, deps Deps) []Step {
	if len(params.IDs) > 0 {
		return prequalifiedRecipe(deps)
	}
	return discoveryRecipe(params, deps)
}

func discoveryRecipe(params Params, deps Deps) []Step {
	steps := []Step{stepLogWindow()}
	if !params.Filters.Empty() {
		steps = append(steps,
			stepCollect(),
			stepFetchHistories(),
			stepQualify(),
		)
		if deps.Secondary != nil {
			steps = append(steps, stepSecondary())
		}
	}
	if deps.Enricher != nil {
		steps = append(steps, stepEnrich())
	}
	return append(steps,
		stepEmptyCheck(),
		stepCap(),
		stepSummarize(),
		stepFormat(),
	)
}

// EmptyRecipe produces just the canned empty report. Used when a caller
// already knows nothing qualified and only needs the output.
func EmptyRecipe() []Step {
	return []Step{stepLogWindow(), stepEmptyCheck()}
}

func prequalifiedRecipe(deps Deps) []Step {
	steps := []Step{stepFetchByIDs(), stepEmptyCheck(), stepCap()}
	if deps.Enricher != nil {
		steps = append(steps, stepEnrich())
	}
	return append(steps,
		stepSummarize(),
		stepFormat(),
	)
}
