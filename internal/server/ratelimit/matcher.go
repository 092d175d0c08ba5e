package ratelimit

// MatchAction returns the configuration for action, or nil if the action is not limited.
func MatchAction(action string, configs []ActionConfig) *ActionConfig {
	for i := range configs {
		if configs[i].Action == action {
			return &configs[i]
		}
	}
	return nil
}
