package orchestrator

import "github.com/agentarena/arena/internal/model"

// Partition splits a group's agent roster into must-reply and may-reply
// sets for one turn (§4.1 Partitioning), given the mentions already
// resolved by ParseMentions (or supplied directly by the caller).
func Partition(agentMembers []string, mentions []string, cfg model.GroupConfig) (must, may []string) {
	broadcast := contains(mentions, broadcastSentinel)

	switch {
	case broadcast:
		must = append(must, agentMembers...)
	default:
		mentionSet := toSet(mentions)
		for _, id := range agentMembers {
			if mentionSet[id] {
				must = append(must, id)
			}
		}
		if len(must) > 0 {
			mustSet := toSet(must)
			for _, id := range agentMembers {
				if !mustSet[id] {
					may = append(may, id)
				}
			}
		}
	}

	if len(must) == 0 && len(may) == 0 {
		may = append(may, agentMembers...)
	}

	if cfg.SupervisorEnabled && cfg.SupervisorAgentID != "" && contains(agentMembers, cfg.SupervisorAgentID) {
		if !contains(must, cfg.SupervisorAgentID) {
			must = append(must, cfg.SupervisorAgentID)
		}
		may = removeFrom(may, cfg.SupervisorAgentID)
	}

	return must, may
}

func contains(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}

func toSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, v := range list {
		set[v] = true
	}
	return set
}

func removeFrom(list []string, target string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}
