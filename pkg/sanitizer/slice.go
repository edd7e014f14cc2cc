package sanitizer

func NormalizeStringSlice(items []string, normalizer func(string) string) []string {
	if len(items) == 0 {
		return []string{}
	}
	return SanitizeSlice(items, normalizer)
}

func NormalizeIDs(ids []string) []string {
	return NormalizeStringSlice(ids, SanitizeID)
}
