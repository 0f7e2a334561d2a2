package core

import (
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// DisplayName is the shell's full name.
	DisplayName = "Lish Ner'zhul"
	// Version is reported by \v and --version.
	Version = "1.0.5"

	// DefaultPrompt is used when neither PS1 nor the configuration set one.
	DefaultPrompt = `\s\$ `

	EnvHome   = "HOME"
	EnvPWD    = "PWD"
	EnvPrompt = "PS1"
)

// PromptEscapes documents the escapes understood in PS1.
var PromptEscapes = [][2]string{
	{`\$`, "`$' if normal user, `#' if root"},
	{`\\`, "`\\'"},
	{`\[ and \]`, "ignored"},
	{`\e`, "escape code (\\033)"},
	{`\h`, "hostname up to the first `.'"},
	{`\H`, "full hostname"},
	{`\n`, "line break"},
	{`\s`, "shell name"},
	{`\u`, "user name"},
	{`\v and \V`, "current shell version"},
	{`\w`, "current working directory (full path)"},
	{`\W`, "current working directory (name only)"},
}

// promptInfo holds the values prompt escapes expand to.
type promptInfo struct {
	Name     string
	User     string
	Hostname string
	Home     string
	Cwd      string
	Root     bool
}

// renderPrompt expands the escapes of ps1.
func renderPrompt(ps1 string, info promptInfo) string {
	var b strings.Builder
	for i := 0; i < len(ps1); i++ {
		c := ps1[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}

		i++
		if i == len(ps1) {
			b.WriteByte('\\')
			break
		}

		switch c = ps1[i]; c {
		case '$':
			if info.Root {
				b.WriteByte('#')
			} else {
				b.WriteByte('$')
			}
		case 'H':
			b.WriteString(info.Hostname)
		case 'h':
			host := info.Hostname
			if dot := strings.IndexByte(host, '.'); dot >= 0 {
				host = host[:dot]
			}
			b.WriteString(host)
		case 'W':
			if info.Cwd == info.Home {
				b.WriteByte('~')
			} else {
				b.WriteString(filepath.Base(info.Cwd))
			}
		case 'w':
			b.WriteString(tildeDir(info.Cwd, info.Home))
		case '\\':
			b.WriteByte('\\')
		case '[', ']':
		case 'e':
			b.WriteByte('\033')
		case 'n':
			b.WriteByte('\n')
		case 's':
			b.WriteString(info.Name)
		case 'u':
			b.WriteString(info.User)
		case 'v', 'V':
			b.WriteString(Version)
		default:
			b.WriteByte('\\')
			b.WriteByte(c)
		}
	}
	return b.String()
}

// tildeDir abbreviates home to ~ at the start of dir. A home of "/" is never
// abbreviated.
func tildeDir(dir, home string) string {
	home = strings.TrimSuffix(home, "/")
	if len(home) <= 1 || !strings.HasPrefix(dir, home) {
		return dir
	}
	return "~" + dir[len(home):]
}

// currentUser is the user name of uid, or the number if it has no entry.
func currentUser(uid int) string {
	if u, err := user.LookupId(strconv.Itoa(uid)); err == nil {
		return u.Username
	}
	return strconv.Itoa(uid)
}

// Prompt renders PS1, falling back to the configured prompt.
func (s *Shell) Prompt() string {
	ps1, ok := os.LookupEnv(EnvPrompt)
	if !ok {
		ps1 = s.cfg.Prompt
		if ps1 == "" {
			ps1 = DefaultPrompt
		}
	}

	if s.userName == "" {
		s.userName = currentUser(os.Getuid())
	}
	hostname, _ := os.Hostname()
	cwd, _ := os.Getwd()

	return renderPrompt(ps1, promptInfo{
		Name:     s.name,
		User:     s.userName,
		Hostname: hostname,
		Home:     os.Getenv(EnvHome),
		Cwd:      cwd,
		Root:     os.Geteuid() == 0,
	})
}
