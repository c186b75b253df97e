package turn

import "github.com/artem13815/cvchat/pkg/chat"

// Window returns the last n messages of history with call/result pairing
// restored: tool messages whose call is gone are dropped, and calls left
// without a result are stripped from their assistant message.
func Window(history []chat.Message, n int) []chat.Message {
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	for len(history) > 0 && history[0].Role == chat.RoleTool {
		history = history[1:]
	}
	return pairCalls(history)
}

func pairCalls(history []chat.Message) []chat.Message {
	answered := make(map[string]bool)
	open := map[string]bool{}
	keepTool := make([]bool, len(history))
	for i, m := range history {
		if m.Role != chat.RoleTool {
			open = make(map[string]bool, len(m.ToolCalls))
			for _, c := range m.ToolCalls {
				open[c.ID] = true
			}
			continue
		}
		if open[m.ToolCallID] && !answered[m.ToolCallID] {
			answered[m.ToolCallID] = true
			keepTool[i] = true
		}
	}

	out := make([]chat.Message, 0, len(history))
	for i, m := range history {
		switch {
		case m.Role == chat.RoleTool:
			if keepTool[i] {
				out = append(out, m)
			}
		case m.HasToolCalls():
			calls := make([]chat.ToolCall, 0, len(m.ToolCalls))
			for _, c := range m.ToolCalls {
				if answered[c.ID] {
					calls = append(calls, c)
				}
			}
			if len(calls) == 0 && m.Content.String() == "" {
				continue
			}
			if len(calls) == 0 {
				calls = nil
			}
			m.ToolCalls = calls
			out = append(out, m)
		default:
			out = append(out, m)
		}
	}
	return out
}
