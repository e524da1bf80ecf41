package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/harrisonrobin/calstats/pkg/colors"
	"github.com/harrisonrobin/calstats/pkg/logger"
	"github.com/harrisonrobin/calstats/pkg/prompt"
)

// TasksCmd manages the color -> task mapping.
type TasksCmd struct {
	List  TasksListCmd  `cmd:"" help:"Show the task assigned to each color." default:"1"`
	Set   TasksSetCmd   `cmd:"" help:"Assign tasks to colors."`
	Edit  TasksEditCmd  `cmd:"" help:"Assign tasks to every color interactively."`
	Clear TasksClearCmd `cmd:"" help:"Remove the mapping."`
}

type TasksListCmd struct{}

func (cmd *TasksListCmd) Run(c *Context) error {
	mapping, err := c.Mapping()
	if err != nil {
		return err
	}
	if !mapping.Exists() {
		fmt.Fprintln(c.out(), "No tasks assigned yet. Use 'calstats tasks edit' or 'calstats tasks set COLOR=TASK'.")
		return nil
	}

	names := colors.GoogleNames()
	t := newTable("Color", "Hex", "Task")
	listed := make(map[string]bool)
	for _, name := range names.Ordered(colors.DefaultPalette()) {
		hex, _ := names.HexForName(name)
		task := mapping.Get(name)
		if task == "" {
			task = mapping.Get(hex)
		}
		if task == "" {
			continue
		}
		t.Row(name, hex, task)
		listed[strings.ToLower(name)] = true
		listed[hex] = true
	}
	for _, key := range mapping.Keys() {
		if listed[strings.ToLower(key)] {
			continue
		}
		name, _ := names.Name(key)
		if strings.HasPrefix(key, "#") {
			t.Row(name, key, mapping.Entries[key])
		} else {
			t.Row(key, "", mapping.Entries[key])
		}
	}
	fmt.Fprintln(c.out(), t.String())
	return nil
}

type TasksSetCmd struct {
	Pairs []string `arg:"" help:"COLOR=TASK pairs. COLOR is a color name (Lavender) or hex (#a4bdfc). An empty TASK removes the color."`
}

func (cmd *TasksSetCmd) Run(c *Context) error {
	mapping, err := c.Mapping()
	if err != nil {
		return err
	}
	for _, pair := range cmd.Pairs {
		color, task, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(color) == "" {
			return fmt.Errorf("invalid pair %q, want COLOR=TASK", pair)
		}
		if err := checkColor(color); err != nil {
			return err
		}
		mapping.Set(color, task)
	}
	if err := mapping.Save(); err != nil {
		return fmt.Errorf("failed to save task mapping: %w", err)
	}
	fmt.Fprintf(c.out(), "Updated %d color(s) in %s\n", len(cmd.Pairs), mapping.Path)
	return nil
}

// checkColor accepts Google color names and any hex value.
func checkColor(color string) error {
	color = strings.TrimSpace(color)
	if strings.HasPrefix(color, "#") {
		return nil
	}
	if _, ok := colors.GoogleNames().HexForName(color); ok {
		return nil
	}
	return fmt.Errorf("unknown color %q (want one of %s, or a #hex value)",
		color, strings.Join(colors.GoogleNames().Ordered(colors.DefaultPalette()), ", "))
}

type TasksEditCmd struct{}

func (cmd *TasksEditCmd) Run(c *Context) error {
	if !c.Interactive {
		return errors.New("tasks edit needs a terminal; use 'calstats tasks set' instead")
	}
	mapping, err := c.Mapping()
	if err != nil {
		return err
	}
	return editMapping(c, mapping)
}

// editMapping asks for the task of every Google color and saves the result.
func editMapping(c *Context, mapping *colors.MappingFile) error {
	names := colors.GoogleNames().Ordered(colors.DefaultPalette())
	fm := prompt.NewMappingFormModel(names, mapping.Get)
	if err := prompt.NewMappingForm(fm).Run(); err != nil {
		return err
	}
	for color, task := range fm.Entries() {
		mapping.Set(color, task)
	}
	if len(mapping.Entries) == 0 {
		logger.Warn("no colors were assigned a task")
	}
	if err := mapping.Save(); err != nil {
		return fmt.Errorf("failed to save task mapping: %w", err)
	}
	return nil
}

type TasksClearCmd struct {
	Yes bool `help:"Do not ask for confirmation." short:"y"`
}

func (cmd *TasksClearCmd) Run(c *Context) error {
	mapping, err := c.Mapping()
	if err != nil {
		return err
	}
	if !cmd.Yes {
		if !c.Interactive {
			return errors.New("refusing to clear the mapping without --yes")
		}
		confirm := false
		if err := prompt.NewConfirmForm("Remove every color -> task assignment?", &confirm).Run(); err != nil {
			return err
		}
		if !confirm {
			return nil
		}
	}
	if err := mapping.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(c.out(), "Task mapping removed.")
	return nil
}

var (
	cellStyle       = lipgloss.NewStyle().Padding(0, 1)
	headerCellStyle = cellStyle.Foreground(lipgloss.Color("205")).Bold(true)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCellStyle
			}
			return cellStyle
		})
}
