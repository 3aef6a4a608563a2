package httpx

import (
	"net/http"
	"time"

	"github.com/sokosumi/aikido-reviewer/internal/data"
)

// MetaHandlers serves the MIP-003 discovery endpoints and health checks.
type MetaHandlers struct {
	Time    data.TimeProvider
	StartAt time.Time
}

// Health handles GET /healthz.
func (h *MetaHandlers) Health(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Availability handles GET /availability.
func (h *MetaHandlers) Availability(w http.ResponseWriter, _ *http.Request) {
	uptime := int64(0)
	if !h.StartAt.IsZero() && h.Time != nil {
		uptime = int64(h.Time.Now().Sub(h.StartAt).Seconds())
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "available",
		"uptime":  uptime,
		"message": "Aikido Audit Reviewer operational.",
	})
}

// schemaField describes one input field in the MIP-003 input schema.
type schemaField struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Name     string         `json:"name"`
	Required bool           `json:"required"`
	Data     map[string]any `json:"data"`
}

// InputSchema handles GET /input_schema.
func (h *MetaHandlers) InputSchema(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string][]schemaField{
		"input_data": {
			{
				ID: "scan_mode", Type: "string", Name: "Scan Mode", Required: false,
				Data: map[string]any{
					"description": "Optional. 'manual' (default) expects aikido_report + source_files. " +
						"'auto' runs the Aikido CLI after payment using source_files or repo_url.",
					"placeholder": "manual",
				},
			},
			{
				ID: "aikido_report", Type: "string", Name: "Aikido JSON Report", Required: false,
				Data: map[string]any{
					"description": "Required in manual mode. The full JSON output from an Aikido scan " +
						"(aikido.findings.v1 schema). Run 'aikido . --format json' to generate this.",
					"placeholder": `{"schema_version": "aikido.findings.v1", ...}`,
				},
			},
			{
				ID: "source_files", Type: "string", Name: "Source Code Files (JSON dict)", Required: false,
				Data: map[string]any{
					"description": "Required in manual mode. JSON object mapping file paths to source " +
						"code contents. In auto mode without repo_url, must be a complete Aiken " +
						"project snapshot including aiken.toml.",
					"placeholder": `{"validators/escrow.ak": "validator escrow { ... }"}`,
				},
			},
			{
				ID: "repo_url", Type: "string", Name: "Repository URL", Required: false,
				Data: map[string]any{
					"description": "Optional in auto mode. HTTPS git repository URL containing an " +
						"Aiken project. If provided, the agent clones and scans this repo after payment.",
					"placeholder": "https://github.com/org/repo",
				},
			},
			{
				ID: "repo_ref", Type: "string", Name: "Repository Ref", Required: false,
				Data: map[string]any{
					"description": "Optional branch/tag to scan in auto mode.",
					"placeholder": "main",
				},
			},
			{
				ID: "repo_subpath", Type: "string", Name: "Repository Subpath", Required: false,
				Data: map[string]any{
					"description": "Optional relative path inside the repo where aiken.toml lives. " +
						"Defaults to the repository root.",
					"placeholder": "contracts/my-aiken-project",
				},
			},
			{
				ID: "execution_backend", Type: "string", Name: "Execution Backend", Required: false,
				Data: map[string]any{
					"description": "Optional. 'default' runs in-process; 'kodosumi' delegates to the " +
						"remote worker when the canary is enabled.",
					"placeholder": "default",
				},
			},
		},
	})
}
