package identify

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Match holds what a rule extracted from a command line, keyed by capture
// name.
type Match map[string]string

// Rule recognizes one family of command lines.
//
// Match reports whether the command line belongs to the rule and returns the
// captured parts. Build turns those parts, plus resolved context, into a
// label. Build is only called with a Match returned by the same rule.
type Rule interface {
	Name() string
	Match(command string) (Match, bool)
	Build(m Match, ctx MatchContext) IdentifiedProcess
}

// matchNamed runs re against s and returns its named captures.
func matchNamed(re *regexp.Regexp, s string) (Match, bool) {
	sub := re.FindStringSubmatch(s)
	if sub == nil {
		return nil, false
	}
	m := make(Match, len(sub))
	for i, name := range re.SubexpNames() {
		if name != "" {
			m[name] = sub[i]
		}
	}
	return m, true
}

// withProject joins a label and a project as "label:project", or returns
// the label alone when there is no project.
func withProject(label, project string) string {
	if project == "" {
		return label
	}
	return label + ":" + project
}

// execPrefix matches an optional directory before an executable name.
const execPrefix = `^(?:\S*/)?`

// -----------------------------------------------------------------------------
// Self
// -----------------------------------------------------------------------------

// selfSubcommandAliases maps short subcommand aliases to their full names.
var selfSubcommandAliases = map[string]string{
	"w": "watch",
	"p": "ps",
	"i": "identify",
	"c": "config",
}

type selfRule struct {
	re *regexp.Regexp
}

func newSelfRule() *selfRule {
	return &selfRule{re: regexp.MustCompile(execPrefix + `devtop(?:\s+(?P<sub>[^\s-]\S*))?(?:\s|$)`)}
}

func (r *selfRule) Name() string { return "self" }

func (r *selfRule) Match(command string) (Match, bool) { return matchNamed(r.re, command) }

func (r *selfRule) Build(m Match, ctx MatchContext) IdentifiedProcess {
	sub := m["sub"]
	if full, ok := selfSubcommandAliases[sub]; ok {
		sub = full
	}
	return IdentifiedProcess{
		DisplayName: withProject("devtop", sub),
		Category:    CategoryTool,
		Project:     ctx.Project,
	}
}

// -----------------------------------------------------------------------------
// AI coding agents
// -----------------------------------------------------------------------------

type agentRule struct {
	re *regexp.Regexp
}

func newAgentRule() *agentRule {
	return &agentRule{re: regexp.MustCompile(
		execPrefix + `(?:(?:node|bun|python[0-9.]*)\s+(?:\S*/)?)?(?P<agent>claude|codex|aider|gemini)(?:\.js)?(?:\s|$)`,
	)}
}

func (r *agentRule) Name() string { return "agent" }

func (r *agentRule) Match(command string) (Match, bool) { return matchNamed(r.re, command) }

func (r *agentRule) Build(m Match, ctx MatchContext) IdentifiedProcess {
	return IdentifiedProcess{
		DisplayName: withProject(m["agent"], ctx.Project),
		Category:    CategoryTool,
		Project:     ctx.Project,
	}
}

// -----------------------------------------------------------------------------
// Runtime + project + node_modules/.bin tool
// -----------------------------------------------------------------------------

// webTools are dev servers and bundlers; other node_modules/.bin tools are
// classified as plain tools.
var webTools = map[string]bool{
	"next":      true,
	"vite":      true,
	"nuxt":      true,
	"nuxi":      true,
	"astro":     true,
	"remix":     true,
	"webpack":   true,
	"parcel":    true,
	"gatsby":    true,
	"nodemon":   true,
	"turbo":     true,
	"storybook": true,
}

type projectBinRule struct {
	re *regexp.Regexp
}

func newProjectBinRule() *projectBinRule {
	return &projectBinRule{re: regexp.MustCompile(
		execPrefix + `(?:node|bun|deno|tsx)\s+\S*?/(?P<project>[^/\s]+)/node_modules/\.bin/(?P<tool>[^/\s]+)`,
	)}
}

func (r *projectBinRule) Name() string { return "project-bin" }

func (r *projectBinRule) Match(command string) (Match, bool) { return matchNamed(r.re, command) }

func (r *projectBinRule) Build(m Match, _ MatchContext) IdentifiedProcess {
	tool := normalizeWebServer(m["tool"])
	category := CategoryTool
	if webTools[tool] {
		category = CategoryWeb
	}
	return IdentifiedProcess{
		DisplayName: tool + ":" + m["project"],
		Category:    category,
		Project:     m["project"],
	}
}

// -----------------------------------------------------------------------------
// Web dev servers
// -----------------------------------------------------------------------------

type webServerRule struct {
	re *regexp.Regexp
}

func newWebServerRule() *webServerRule {
	return &webServerRule{re: regexp.MustCompile(
		execPrefix + `(?:(?:node|bun|deno)\s+(?:\S*/)?)?(?P<server>next-server|next|vite|nuxt|nuxi|astro|remix|webpack|parcel|gatsby|nodemon|turbo|storybook)(?:\.js)?(?:\s|$)`,
	)}
}

func (r *webServerRule) Name() string { return "web-server" }

func (r *webServerRule) Match(command string) (Match, bool) { return matchNamed(r.re, command) }

func (r *webServerRule) Build(m Match, ctx MatchContext) IdentifiedProcess {
	return IdentifiedProcess{
		DisplayName: withProject(normalizeWebServer(m["server"]), ctx.Project),
		Category:    CategoryWeb,
		Project:     ctx.Project,
	}
}

func normalizeWebServer(name string) string {
	if name == "next-server" {
		return "next"
	}
	return name
}

// -----------------------------------------------------------------------------
// Package-manager run
// -----------------------------------------------------------------------------

type packageManagerRule struct {
	re *regexp.Regexp
}

func newPackageManagerRule() *packageManagerRule {
	return &packageManagerRule{re: regexp.MustCompile(
		execPrefix + `(?:node\s+(?:\S*/)?)?(?P<pm>npm|pnpm|yarn|bun)(?:-cli\.js)?(?:\s+run)?\s+(?P<script>[A-Za-z0-9][A-Za-z0-9:_-]*)(?:\s|$)`,
	)}
}

func (r *packageManagerRule) Name() string { return "package-manager" }

func (r *packageManagerRule) Match(command string) (Match, bool) {
	m, ok := matchNamed(r.re, command)
	// "bun run server.ts" backtracks into capturing "run" as the script.
	if !ok || m["script"] == "run" {
		return nil, false
	}
	return m, true
}

func (r *packageManagerRule) Build(m Match, ctx MatchContext) IdentifiedProcess {
	return IdentifiedProcess{
		DisplayName: m["pm"] + ":" + m["script"],
		Category:    CategoryScript,
		Project:     ctx.Project,
	}
}

// -----------------------------------------------------------------------------
// Databases
// -----------------------------------------------------------------------------

type databaseRule struct {
	re *regexp.Regexp
}

func newDatabaseRule() *databaseRule {
	return &databaseRule{re: regexp.MustCompile(
		execPrefix + `(?P<db>postgres|postmaster|mysqld|mariadbd|mongod|redis-server|memcached|clickhouse-server|etcd|elasticsearch)(?::|\s|$)`,
	)}
}

func (r *databaseRule) Name() string { return "database" }

func (r *databaseRule) Match(command string) (Match, bool) { return matchNamed(r.re, command) }

func (r *databaseRule) Build(m Match, ctx MatchContext) IdentifiedProcess {
	db := m["db"]
	if db == "postmaster" {
		db = "postgres"
	}
	label := db
	if ctx.Port > 0 {
		label = db + ":" + strconv.Itoa(ctx.Port)
	}
	return IdentifiedProcess{
		DisplayName: label,
		Category:    CategoryDatabase,
		Project:     ctx.Project,
	}
}

// -----------------------------------------------------------------------------
// Services
// -----------------------------------------------------------------------------

type serviceRule struct {
	re *regexp.Regexp
}

func newServiceRule() *serviceRule {
	return &serviceRule{re: regexp.MustCompile(
		execPrefix + `(?P<service>nginx|caddy|httpd|traefik|dockerd|containerd|ollama)(?::|\s|$)`,
	)}
}

func (r *serviceRule) Name() string { return "service" }

func (r *serviceRule) Match(command string) (Match, bool) { return matchNamed(r.re, command) }

func (r *serviceRule) Build(m Match, _ MatchContext) IdentifiedProcess {
	return IdentifiedProcess{
		DisplayName: m["service"],
		Category:    CategoryService,
	}
}

// -----------------------------------------------------------------------------
// Runtime + script
// -----------------------------------------------------------------------------

var runtimePattern = regexp.MustCompile(`^(?:node|python[0-9.]*|ruby|deno|bun|php|perl|tsx|ts-node)$`)

// entryPoints are script names that say nothing about what runs; they
// collapse to the project name.
var entryPoints = map[string]bool{
	"index":  true,
	"main":   true,
	"app":    true,
	"server": true,
}

// flagsWithValue consume the next argument.
var flagsWithValue = map[string]bool{
	"-r":        true,
	"--require": true,
	"--import":  true,
	"--loader":  true,
	"-W":        true,
	"-X":        true,
	"-I":        true,
}

type runtimeScriptRule struct{}

func newRuntimeScriptRule() *runtimeScriptRule { return &runtimeScriptRule{} }

func (r *runtimeScriptRule) Name() string { return "runtime-script" }

func (r *runtimeScriptRule) Match(command string) (Match, bool) {
	fields := strings.Fields(command)
	if len(fields) < 2 {
		return nil, false
	}
	runtime := filepath.Base(fields[0])
	if !runtimePattern.MatchString(runtime) {
		return nil, false
	}
	if strings.HasPrefix(runtime, "python") {
		runtime = "python"
	}

	for i := 1; i < len(fields); i++ {
		arg := fields[i]
		switch {
		case arg == "-m" && runtime == "python" && i+1 < len(fields):
			return Match{"runtime": runtime, "module": fields[i+1]}, true
		case arg == "-c" || arg == "-e" || arg == "--eval":
			return nil, false
		case flagsWithValue[arg]:
			i++
		case strings.HasPrefix(arg, "-"):
		case arg == "run" && (runtime == "deno" || runtime == "bun"):
		default:
			return Match{"runtime": runtime, "script": arg}, true
		}
	}
	return nil, false
}

func (r *runtimeScriptRule) Build(m Match, ctx MatchContext) IdentifiedProcess {
	runtime := m["runtime"]
	if module := m["module"]; module != "" {
		return IdentifiedProcess{
			DisplayName: runtime + ":" + module,
			Category:    CategoryScript,
			Project:     ctx.Project,
		}
	}

	script := m["script"]
	name := strings.TrimSuffix(filepath.Base(script), filepath.Ext(script))
	if entryPoints[strings.ToLower(name)] {
		if project := ctx.Project; project != "" {
			name = project
		} else if dir := scriptDirName(script); dir != "" {
			name = dir
		}
	}
	return IdentifiedProcess{
		DisplayName: runtime + ":" + name,
		Category:    CategoryScript,
		Project:     ctx.Project,
	}
}

// scriptDirName returns the nearest enclosing directory of script that is
// not a build artifact or source directory.
func scriptDirName(script string) string {
	dir := filepath.Dir(script)
	for dir != "." && dir != "/" && dir != "" {
		base := filepath.Base(dir)
		if !isExcludedSegment(base) {
			return base
		}
		dir = filepath.Dir(dir)
	}
	return ""
}

// -----------------------------------------------------------------------------
// Interactive shells
// -----------------------------------------------------------------------------

type shellRule struct {
	re *regexp.Regexp
}

func newShellRule() *shellRule {
	return &shellRule{re: regexp.MustCompile(
		`^-?(?:\S*/)?(?P<shell>zsh|bash|fish|sh|dash|ksh|tcsh|nu)(?:\s+-\S+)*\s*$`,
	)}
}

func (r *shellRule) Name() string { return "shell" }

func (r *shellRule) Match(command string) (Match, bool) { return matchNamed(r.re, command) }

func (r *shellRule) Build(m Match, _ MatchContext) IdentifiedProcess {
	return IdentifiedProcess{
		DisplayName: m["shell"],
		Category:    CategorySystem,
	}
}

// -----------------------------------------------------------------------------
// macOS application bundles
// -----------------------------------------------------------------------------

// versionMarkers are executables named for a release channel rather than
// the application.
var versionMarkers = map[string]bool{
	"stable":  true,
	"beta":    true,
	"canary":  true,
	"nightly": true,
	"dev":     true,
	"preview": true,
}

type appBundleRule struct {
	re *regexp.Regexp
}

func newAppBundleRule() *appBundleRule {
	return &appBundleRule{re: regexp.MustCompile(`/([^/]+)\.app/Contents/MacOS/([^/]+)`)}
}

func (r *appBundleRule) Name() string { return "app-bundle" }

// Match picks the innermost bundle, so a helper app nested in
// Contents/Frameworks is reported instead of its parent.
func (r *appBundleRule) Match(command string) (Match, bool) {
	all := r.re.FindAllStringSubmatch(command, -1)
	if len(all) == 0 {
		return nil, false
	}
	last := all[len(all)-1]
	app := last[1]

	exec := last[2]
	if strings.HasPrefix(exec, app) {
		exec, _, _ = strings.Cut(exec, " -")
	} else if i := strings.IndexAny(exec, " \t"); i >= 0 {
		exec = exec[:i]
	}
	return Match{"app": app, "exec": strings.TrimSpace(exec)}, true
}

func (r *appBundleRule) Build(m Match, _ MatchContext) IdentifiedProcess {
	app, exec := m["app"], m["exec"]
	label := app
	if exec != "" && exec != app && !versionMarkers[strings.ToLower(exec)] {
		helper := strings.TrimSpace(strings.TrimPrefix(exec, app))
		if helper != "" {
			label = app + ":" + helper
		}
	}
	return IdentifiedProcess{
		DisplayName: label,
		Category:    CategoryApp,
	}
}

// DefaultRules returns the built-in rules in precedence order. The order is
// significant: several rules can match the same command line and the first
// one wins.
func DefaultRules() []Rule {
	return []Rule{
		newSelfRule(),
		newAgentRule(),
		newProjectBinRule(),
		newWebServerRule(),
		newPackageManagerRule(),
		newDatabaseRule(),
		newServiceRule(),
		newRuntimeScriptRule(),
		newShellRule(),
		newAppBundleRule(),
	}
}
