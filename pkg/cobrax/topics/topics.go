// Package topics extends Cobra's help system with documentation topics
// loaded from an fs.FS, so `mkp-builder help <topic>` can serve embedded
// guides alongside command help.
package topics

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// Topic is one help document.
type Topic struct {
	Name    string
	Ext     string
	Content string
}

// Manager holds the topics discovered in a documentation filesystem.
type Manager struct {
	topics       map[string]*Topic
	originalHelp func(*cobra.Command, []string)
	renderer     Renderer
}

// Options configures a Manager.
type Options struct {
	// Extensions lists the file extensions treated as topics.
	// Defaults to [".md", ".txt"].
	Extensions []string

	// Renderer formats topic content; PlainRenderer when nil.
	Renderer Renderer
}

// New scans docsFS for topic files and builds a Manager.
func New(docsFS fs.FS, opts Options) (*Manager, error) {
	extensions := opts.Extensions
	if len(extensions) == 0 {
		extensions = []string{".md", ".txt"}
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = &PlainRenderer{}
	}

	m := &Manager{
		topics:   make(map[string]*Topic),
		renderer: renderer,
	}

	err := fs.WalkDir(docsFS, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := path.Ext(p)
		supported := false
		for _, valid := range extensions {
			if ext == valid {
				supported = true
				break
			}
		}
		if !supported {
			return nil
		}
		content, err := fs.ReadFile(docsFS, p)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(path.Base(p), ext)
		m.topics[name] = &Topic{Name: name, Ext: ext, Content: string(content)}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan help topics: %w", err)
	}
	return m, nil
}

// Get retrieves a topic by name.
func (m *Manager) Get(name string) (*Topic, bool) {
	topic, ok := m.topics[name]
	return topic, ok
}

// List returns all topic names, sorted.
func (m *Manager) List() []string {
	names := make([]string, 0, len(m.topics))
	for name := range m.topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Install wires the Manager into rootCmd: it replaces the help command
// with one that also resolves topics, and extends --help the same way.
func (m *Manager) Install(rootCmd *cobra.Command) {
	m.originalHelp = rootCmd.HelpFunc()

	helpCmd := &cobra.Command{
		Use:   "help [command or topic]",
		Short: "Help about any command or topic",
		Long: `Help provides help for any command or topic.
Type ` + rootCmd.Name() + ` help [command or topic] for full details.

To see all available help topics:
  ` + rootCmd.Name() + ` help topics`,
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			completions := []string{"topics"}
			for _, c := range rootCmd.Commands() {
				if !c.Hidden {
					completions = append(completions, c.Name())
				}
			}
			completions = append(completions, m.List()...)
			return completions, cobra.ShellCompDirectiveNoFileComp
		},
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				m.originalHelp(rootCmd, nil)
				return
			}
			if args[0] == "topics" {
				m.printTopicList(cmd, rootCmd.Name())
				return
			}
			if topic, ok := m.Get(args[0]); ok {
				cmd.Print(m.renderer.Render(topic.Content, topic.Ext))
				return
			}
			m.originalHelp(rootCmd, args)
		},
	}

	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "help" {
			rootCmd.RemoveCommand(cmd)
			break
		}
	}
	rootCmd.AddCommand(helpCmd)

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			if topic, ok := m.Get(args[0]); ok {
				cmd.Print(m.renderer.Render(topic.Content, topic.Ext))
				return
			}
		}
		m.originalHelp(cmd, args)
	})
}

func (m *Manager) printTopicList(cmd *cobra.Command, appName string) {
	names := m.List()
	if len(names) == 0 {
		cmd.Println("No help topics available.")
		return
	}
	cmd.Println("Available help topics:")
	for _, name := range names {
		cmd.Printf("  %s\n", name)
	}
	cmd.Printf("\nUse '%s help <topic>' to read about a specific topic.\n", appName)
}
