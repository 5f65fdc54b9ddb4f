package cmd

// cmd/llm.go — machine-readable context document for LLM onboarding.
//
// Usage:
//   campcheck llm                          # start bundle
//   campcheck llm --topic toc              # topic index
//   campcheck llm --topic commands         # command reference
//   campcheck llm --topic pipeline         # JSONL records and summarize
//   campcheck llm --topic data-model       # statuses, grids, Result envelope
//   campcheck llm --topic gotchas          # sharp edges
//   campcheck llm --topic toc,pipeline     # comma-separated multi-topic
//   campcheck llm --topic all              # everything

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// ─── Topic registry ───────────────────────────────────────────────────────────

type llmTopic struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var topicRegistry = []llmTopic{
	{"start", "Curated onboarding bundle: commands, pipeline and gotchas."},
	{"toc", "Topic index and how to request more context."},
	{"commands", "Command reference: nouns, verbs, flags, output formats."},
	{"pipeline", "JSONL site-month records, check | summarize, piped defaults."},
	{"data-model", "Availability statuses, month grids, summaries, Result envelope."},
	{"gotchas", "Sessions, exact campground names, share gating, watch state."},
	{"version", "Build metadata for provenance."},
}

// ─── Command ──────────────────────────────────────────────────────────────────

var llmTopicFlag string

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Emit a machine-readable context document for LLM onboarding",
	Long: `Emit a JSON document describing campcheck's commands, pipe format and
known sharp edges, sized for an LLM context window.

Bare 'campcheck llm' emits the start bundle. Use --topic toc to see what
else is available, then request only the topics you need.

Topics:
  start       Curated onboarding bundle (default)
  toc         Topic index
  commands    Command reference
  pipeline    JSONL records and summarize
  data-model  Statuses, grids, Result envelope
  gotchas     Sharp edges
  version     Build metadata
  all         Everything`,
	Example: `  campcheck llm
  campcheck llm --topic toc
  campcheck llm --topic pipeline,gotchas
  campcheck llm --topic version --format jsonl >> audit.jsonl`,
	RunE: func(cmd *cobra.Command, args []string) error {
		topics := parseLLMTopics(llmTopicFlag)
		for _, t := range topics {
			if !knownTopic(t) {
				return fmt.Errorf("unknown topic %q (run 'campcheck llm --topic toc')", t)
			}
		}
		doc := buildLLMDoc(topics)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		if globalFlags.Format != "jsonl" {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(doc)
	},
}

func init() {
	rootCmd.AddCommand(llmCmd)
	llmCmd.Flags().StringVar(&llmTopicFlag, "topic", "start",
		"topic(s) to emit: start|toc|commands|pipeline|data-model|gotchas|version|all (comma-separated)")
}

// ─── Topic parsing ────────────────────────────────────────────────────────────

func parseLLMTopics(flag string) []string {
	if flag == "" {
		flag = "start"
	}
	if flag == "all" {
		all := make([]string, len(topicRegistry))
		for i, t := range topicRegistry {
			all[i] = t.Name
		}
		return all
	}
	parts := strings.Split(flag, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func knownTopic(name string) bool {
	for _, t := range topicRegistry {
		if t.Name == name {
			return true
		}
	}
	return false
}

// ─── Document builder ─────────────────────────────────────────────────────────

func buildLLMDoc(topics []string) map[string]any {
	set := make(map[string]bool, len(topics))
	for _, t := range topics {
		set[t] = true
	}

	doc := map[string]any{
		"tool":    "campcheck",
		"version": Version,
		"llm_note": "This document was generated by `campcheck llm`. " +
			"It is the authoritative reference for campcheck's CLI semantics.",
	}
	if set["start"] {
		doc["start"] = map[string]any{
			"description": "Minimum context to drive campcheck: commands, pipe format, gotchas.",
			"commands":    buildCommands(),
			"pipeline":    buildPipeline(),
			"gotchas":     buildGotchas(),
		}
	}
	if set["toc"] {
		doc["toc"] = buildTOC()
	}
	if set["commands"] {
		doc["commands"] = buildCommands()
	}
	if set["pipeline"] {
		doc["pipeline"] = buildPipeline()
	}
	if set["data-model"] {
		doc["data_model"] = buildDataModel()
	}
	if set["gotchas"] {
		doc["gotchas"] = buildGotchas()
	}
	if set["version"] {
		doc["version_detail"] = map[string]any{
			"version":    Version,
			"build_time": BuildTime,
		}
	}
	return doc
}

func buildTOC() map[string]any {
	topics := make([]map[string]any, len(topicRegistry))
	for i, t := range topicRegistry {
		topics[i] = map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"fetch":       fmt.Sprintf("campcheck llm --topic %s", t.Name),
		}
	}
	return map[string]any{
		"description": "campcheck is a Go CLI for a campground availability backend. " +
			"It looks up campground names, shows per-site day grids for chosen months, " +
			"and shares a site's open dates by email and WhatsApp.",
		"topics":      topics,
		"multi_topic": "campcheck llm --topic pipeline,gotchas",
	}
}

func buildCommands() map[string]any {
	return map[string]any{
		"global_flags": map[string]any{
			"--format":   "table|json|jsonl|csv|tsv|md|ics (default: table; check defaults to jsonl when piped)",
			"--out":      "write output to a file",
			"--base-url": "backend URL (also CAMPCHECK_BASE_URL, config.json base_url)",
			"--timeout":  "HTTP timeout, e.g. 30s",
			"--rate":     "requests per second (default 5)",
			"--verbose":  "timing footer on stderr",
			"--debug":    "debug logging",
			"--quiet":    "no non-error output",
		},
		"nouns": map[string]any{
			"auth":      "register | verify | resend-otp | login | logout | forgot | reset | status",
			"suggest":   "suggest <text> [--limit N] | suggest --interactive (:<n> selects, :q quits)",
			"check":     "check <campground> --year Y --months 6,7 [--site L] [--nights N] [--summary] [--chart] [--cached]",
			"share":     "share <campground> --months M --site L [--loop P | --campsite-id ID] --name N --email E --whatsapp +E164 [--dry-run]",
			"saved":     "save <name> <campground> --months M | list | show <ref> | run <ref> | delete <ref>...",
			"summarize": "reads check JSONL from stdin",
			"watch":     "watch <campground> --months M [--once] [--schedule CRON] [--notify --name --email --whatsapp] | list | delete <id>...",
			"serve":     "local JSON API: GET /health, GET /api/suggestions, POST|GET|DELETE /api/availability (one lookup at a time per X-Campcheck-View; 409 while loading, 410 after reset), POST /api/share",
			"cache":     "stats | clear --all|--bucket B | compact",
			"config":    "init | get | set <key> <value>",
		},
	}
}

func buildPipeline() map[string]any {
	return map[string]any{
		"record": "one JSON object per site per month",
		"schema": map[string]any{
			"campground_name": "string",
			"year":            "int",
			"month":           "int 1-12",
			"campsite_id":     "string",
			"site":            "string label",
			"loop":            "string",
			"availabilities":  "object YYYY-MM-DD -> Available|Reserved, in backend order; missing dates are Unknown",
		},
		"example": `campcheck check "Upper Pines" --months 6,7 --format jsonl | campcheck summarize --format csv`,
		"note":    "check writes JSONL automatically when stdout is not a terminal and no format is set.",
	}
}

func buildDataModel() map[string]any {
	return map[string]any{
		"status": map[string]any{
			"A": "Available",
			"R": "Reserved",
			"X": "Unknown: any other value, or no entry for the date",
		},
		"grid": "one per month: rows are sites in backend order, columns are every day of the month; SHARE marks sites with an available day",
		"summary": map[string]any{
			"fields": "available, reserved, unknown, occupancy_pct (reserved / known days), longest_run",
		},
		"result_envelope": map[string]any{
			"kind":  "availability | suggestions | summary | saved_search | watch",
			"data":  "typed payload",
			"stats": "cache_hit, duration_ms, items",
		},
	}
}

func buildGotchas() []string {
	return []string{
		"check, share and watch need a session: run `campcheck auth login` first.",
		"The campground name must match the backend exactly; use `campcheck suggest` to find it.",
		"Years before 2025 are rejected. Months are 1-12 and must not repeat.",
		"share refuses a site with no available day in the chosen months, and a label that repeats across loops unless --loop or --campsite-id narrows it.",
		"Date labels sent by share follow date_layout in config.json (default 1/2/2006).",
		"watch state is keyed by campground, year, months and site; changing any starts a new watch.",
		"--cached reuses the last stored result for the same query without contacting the backend.",
	}
}
