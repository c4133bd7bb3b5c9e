package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/renameio/v2/maybe"
	"github.com/spf13/cobra"

	"subforge/internal/ass"
	"subforge/internal/fileutil"
	"subforge/internal/fontname"
	"subforge/internal/services"
)

func newFontsCommand(ctx *commandContext) *cobra.Command {
	fontsCmd := &cobra.Command{
		Use:   "fonts",
		Short: "Font and subtitle font utilities",
	}

	fontsCmd.AddCommand(newFontsNamesCommand())
	fontsCmd.AddCommand(newFontsRenameCommand())
	fontsCmd.AddCommand(newFontsEmbedCommand())
	fontsCmd.AddCommand(newFontsUnpackCommand())
	fontsCmd.AddCommand(newFontsResolveCommand())
	fontsCmd.AddCommand(newFontsCleanHeaderCommand())
	fontsCmd.AddCommand(newFontsMergeCommand(ctx))

	return fontsCmd
}

func newFontsNamesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "names <font>...",
		Short:       "Show the naming table of fonts",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(args))
			for _, path := range args {
				font, err := fontname.ParseFile(path)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					filepath.Base(path),
					font.Name(fontname.NameFamily),
					font.Name(fontname.NameFull),
					font.Name(fontname.NamePostScript),
					fontname.DisplayName(path),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable("",
				[]string{"File", "Family", "Full name", "PostScript", "Display"},
				rows, nil))
			return nil
		},
	}
}

func newFontsRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "rename <font> <old-name> <new-name>",
		Short:       "Replace a subset name inside a font's naming table",
		Args:        cobra.ExactArgs(3),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := fontname.RenameFile(args[0], args[1], args[2])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Renamed %s: family %q, PostScript %q\n",
				filepath.Base(args[0]), snap.Text(fontname.NameFamily), snap.Text(fontname.NamePostScript))
			return nil
		},
	}
}

func newFontsEmbedCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "embed <subtitle> <font-dir>",
		Short:       "Embed every font of a directory into an ASS/SSA subtitle",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := ass.EmbedFontDir(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Embedded %d fonts into %s\n", count, filepath.Base(args[0]))
			return nil
		},
	}
}

func newFontsUnpackCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "unpack <subtitle> <dir>",
		Short:       "Write the fonts embedded in an ASS/SSA subtitle to a directory",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := ass.ReadFile(args[0])
			if err != nil {
				return err
			}
			embedded, err := ass.EmbeddedFonts(text)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(args[1], 0o755); err != nil {
				return services.Wrap(services.ErrFileSystem, "cli", "unpack fonts", args[1], err)
			}
			out := cmd.OutOrStdout()
			for _, font := range embedded {
				target, err := fileutil.UniquePath(args[1], filepath.Base(font.Name))
				if err != nil {
					return err
				}
				if err := maybe.WriteFile(target, font.Data, 0o644); err != nil {
					return services.Wrap(services.ErrFileSystem, "cli", "unpack fonts", target, err)
				}
				fmt.Fprintln(out, target)
			}
			if len(embedded) == 0 {
				fmt.Fprintln(out, "No embedded fonts")
			}
			return nil
		},
	}
}

func newFontsResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "resolve <subtitle>",
		Short:       "Replace subset font names with the real names listed in the subtitle",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			mapping, err := ass.ResolveFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(mapping) == 0 {
				fmt.Fprintln(out, "No font subset mapping found")
				return nil
			}
			subsets := make([]string, 0, len(mapping))
			for subset := range mapping {
				subsets = append(subsets, subset)
			}
			sort.Strings(subsets)
			rows := make([][]string, 0, len(subsets))
			for _, subset := range subsets {
				rows = append(rows, []string{subset, mapping[subset]})
			}
			fmt.Fprintln(out, renderTable("Resolved "+filepath.Base(args[0]), []string{"Subset", "Font"}, rows, nil))
			return nil
		},
	}
}

func newFontsCleanHeaderCommand() *cobra.Command {
	var width, height int

	cmd := &cobra.Command{
		Use:         "clean-header <subtitle>...",
		Short:       "Clean the [Script Info] section of ASS/SSA subtitles",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if (width > 0) != (height > 0) {
				return services.Wrap(services.ErrValidation, "cli", "clean header", "--width and --height must be given together", nil)
			}
			out := cmd.OutOrStdout()
			for _, path := range args {
				if err := ass.CleanHeaderFile(path); err != nil {
					return err
				}
				if width > 0 {
					if err := ass.SetPlayResFile(path, width, height); err != nil {
						return err
					}
				}
				fmt.Fprintf(out, "Cleaned %s\n", filepath.Base(path))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 0, "Also set PlayResX")
	cmd.Flags().IntVar(&height, "height", 0, "Also set PlayResY")
	return cmd
}

func newFontsMergeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <fonts-root>",
		Short: "Merge the per-video subset fonts collected under a Fonts directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			merger := newMerger(cfg, ctx.locator(cfg), ctx.loggerFor(cfg))
			// No snapshots survive between runs, so names are synthesized
			// from each group's base name.
			report, err := merger.Merge(cmd.Context(), args[0], nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(report.Groups) == 0 {
				fmt.Fprintln(out, "No fonts to merge")
				return nil
			}
			fmt.Fprintln(out, renderMergeTable(report))
			if failed := report.Failed(); len(failed) > 0 {
				return fmt.Errorf("%d of %d font groups failed", len(failed), len(report.Groups))
			}
			return nil
		},
	}
}
