package pipeline

// Merge lays a runner status snapshot over the locally reduced state.
//
// The status endpoint carries no summary and no step durations, so when both
// sides describe the same run those fields are kept from local wherever the
// statuses still agree. A runner that knows no run at all leaves local as it
// is; a different run ID replaces local outright.
func Merge(local, remote State) State {
	remote = remote.Normalize()
	if remote.RunID == "" && remote.Status == StatusIdle {
		return local
	}
	if remote.RunID != local.RunID {
		return remote
	}

	next := remote.clone()
	if next.Status == local.Status {
		if next.Status == StatusCompleted && next.Summary == nil {
			next.Summary = local.Summary
		}
		if next.Status == StatusFailed && next.Error == "" {
			next.Error = local.Error
		}
		if next.StartedAt == nil {
			next.StartedAt = local.StartedAt
		}
		if next.CompletedAt == nil {
			next.CompletedAt = local.CompletedAt
		}
	}

	for step, rs := range next.Steps {
		ls, ok := local.Steps[step]
		if !ok || ls.Status != rs.Status {
			continue
		}
		next.Steps[step] = mergeStep(ls, rs)
	}
	return next
}

func mergeStep(local, remote StepState) StepState {
	out := remote
	if out.StartedAt == nil {
		out.StartedAt = local.StartedAt
	}
	if out.CompletedAt == nil {
		out.CompletedAt = local.CompletedAt
	}
	if out.Message == "" {
		out.Message = local.Message
	}
	if remote.Status == StepCompleted {
		if out.DurationMs == nil {
			out.DurationMs = local.DurationMs
		}
		if local.ItemsProcessed != nil && (out.ItemsProcessed == nil || *out.ItemsProcessed == 0) {
			out.ItemsProcessed = local.ItemsProcessed
		}
	}
	if remote.Status == StepFailed && out.Error == "" {
		out.Error = local.Error
	}
	return out
}
