// Package creds resolves the four secrets the pipeline needs: Oxylabs and
// LinkedIn username/password pairs. Sources are chained in precedence order
// (flags, credential file, interactive prompt); each source only fills fields
// the previous ones left blank.
package creds

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the credential file kept in the user's home directory.
const DefaultFileName = ".licscraper.yml"

// Credentials holds every secret the pipeline needs before it starts.
type Credentials struct {
	OxylabsUsername  string `yaml:"oxylabs_username"`
	OxylabsPassword  string `yaml:"oxylabs_password"`
	LinkedInUsername string `yaml:"linkedin_username"`
	LinkedInPassword string `yaml:"linkedin_password"`
}

// Complete reports whether every field is set.
func (c Credentials) Complete() bool {
	return c.OxylabsUsername != "" && c.OxylabsPassword != "" &&
		c.LinkedInUsername != "" && c.LinkedInPassword != ""
}

// Source fills in whatever fields of c are still blank and returns the
// result. Sources never overwrite fields already set by an earlier source.
type Source interface {
	Fill(c Credentials) (Credentials, error)
}

// Resolve runs the sources in order, stopping early once the credentials are
// complete. It returns an error if the chain is exhausted with fields still
// missing.
func Resolve(initial Credentials, sources ...Source) (Credentials, error) {
	c := initial
	for _, s := range sources {
		if c.Complete() {
			return c, nil
		}
		var err error
		if c, err = s.Fill(c); err != nil {
			return Credentials{}, err
		}
	}
	if !c.Complete() {
		return Credentials{}, errors.New("creds: incomplete credentials")
	}
	return c, nil
}

// File reads and writes the YAML credential file.
type File struct {
	Path string
}

// DefaultPath returns the credential file location in the user's home
// directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("creds: %w", err)
	}
	return filepath.Join(home, DefaultFileName), nil
}

// Fill merges stored credentials into the blanks of c. A missing file is not
// an error; the file is simply one link in the chain.
func (f File) Fill(c Credentials) (Credentials, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("creds: read %s: %w", f.Path, err)
	}

	var stored Credentials
	if err := yaml.Unmarshal(data, &stored); err != nil {
		return Credentials{}, fmt.Errorf("creds: parse %s: %w", f.Path, err)
	}

	return merge(c, stored), nil
}

// Save writes the credentials to the file, readable by the owner only.
func (f File) Save(c Credentials) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("creds: marshal: %w", err)
	}
	if err := os.WriteFile(f.Path, data, 0o600); err != nil {
		return fmt.Errorf("creds: write %s: %w", f.Path, err)
	}
	return nil
}

func merge(c, fallback Credentials) Credentials {
	if c.OxylabsUsername == "" {
		c.OxylabsUsername = fallback.OxylabsUsername
	}
	if c.OxylabsPassword == "" {
		c.OxylabsPassword = fallback.OxylabsPassword
	}
	if c.LinkedInUsername == "" {
		c.LinkedInUsername = fallback.LinkedInUsername
	}
	if c.LinkedInPassword == "" {
		c.LinkedInPassword = fallback.LinkedInPassword
	}
	return c
}

// Prompt asks interactively for whatever is still missing. Passwords are
// read without echo when In is a terminal.
type Prompt struct {
	In  *os.File
	Out io.Writer
}

// NewPrompt builds a Prompt on stdin/stderr.
func NewPrompt() Prompt {
	return Prompt{In: os.Stdin, Out: os.Stderr}
}

// Fill prompts for each blank field in turn.
func (p Prompt) Fill(c Credentials) (Credentials, error) {
	reader := bufio.NewReader(p.In)

	var err error
	if c.OxylabsUsername == "" {
		if c.OxylabsUsername, err = p.readLine(reader, "Enter Oxylabs username: "); err != nil {
			return Credentials{}, err
		}
	}
	if c.OxylabsPassword == "" {
		if c.OxylabsPassword, err = p.readSecret(reader, "Enter Oxylabs password: "); err != nil {
			return Credentials{}, err
		}
	}
	if c.LinkedInUsername == "" {
		if c.LinkedInUsername, err = p.readLine(reader, "Enter LinkedIn username: "); err != nil {
			return Credentials{}, err
		}
	}
	if c.LinkedInPassword == "" {
		if c.LinkedInPassword, err = p.readSecret(reader, "Enter LinkedIn password: "); err != nil {
			return Credentials{}, err
		}
	}
	return c, nil
}

func (p Prompt) readLine(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(p.Out, prompt)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("creds: read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (p Prompt) readSecret(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(p.Out, prompt)

	fd := int(p.In.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(p.Out)
		if err != nil {
			return "", fmt.Errorf("creds: read password: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}

	// Not a terminal (tests, piped input): fall back to a plain line read.
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("creds: read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
