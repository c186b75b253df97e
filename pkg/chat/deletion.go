package chat

// DeletionGroup resolves the IDs removed together with messageID. An
// assistant message with tool calls takes its tool results along, and a tool
// result takes its assistant call and sibling results, so a log never keeps
// half of a call/result pair.
func DeletionGroup(log []Message, messageID string) ([]string, error) {
	idx := -1
	for i, m := range log {
		if m.ID == messageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNotFound
	}

	head := idx
	if log[idx].Role == RoleTool {
		head = -1
		for i := idx - 1; i >= 0; i-- {
			if log[i].Role != RoleTool {
				if callsInclude(log[i], log[idx].ToolCallID) {
					head = i
				}
				break
			}
		}
		if head < 0 {
			return []string{messageID}, nil
		}
	}
	if !log[head].HasToolCalls() {
		return []string{messageID}, nil
	}

	ids := []string{log[head].ID}
	for i := head + 1; i < len(log) && log[i].Role == RoleTool; i++ {
		if callsInclude(log[head], log[i].ToolCallID) {
			ids = append(ids, log[i].ID)
		}
	}
	return ids, nil
}

func callsInclude(m Message, callID string) bool {
	for _, c := range m.ToolCalls {
		if c.ID == callID {
			return true
		}
	}
	return false
}
