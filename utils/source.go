package utils

import "KasutamaizaBot/registry"

// HelperSource exposes this package's helpers to the registry under snake_case names
func HelperSource() registry.Source {
	return registry.SourceFunc{
		SourceName: "utils",
		Fn: func() (map[string]any, error) {
			return map[string]any{
				"extract_user_id":       ExtractUserID,
				"has_permission":        HasPermission,
				"check_permission":      CheckPermission,
				"get_highest_role":      GetHighestRole,
				"format_uptime":         FormatUptime,
				"truncate_string":       TruncateString,
				"split_long_string":     SplitLongString,
				"chunk_fields":          ChunkFields,
				"validate_number_range": ValidateNumberRange,
				"error_embed":           ErrorEmbed,
				"info_embed":            InfoEmbed,
				"paginate_embeds":       PaginateEmbeds,
			}, nil
		},
	}
}
