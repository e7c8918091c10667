package replies

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/guildreply/guildreply/pkg/dialog"
	"github.com/guildreply/guildreply/pkg/events"
	"github.com/guildreply/guildreply/pkg/storage"
)

// ErrUsage marks errors caused by malformed command input. Their message is
// shown to the user as is.
var ErrUsage = errors.New("command usage")

type usageError string

func (e usageError) Error() string        { return string(e) }
func (e usageError) Is(target error) bool { return target == ErrUsage }

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError(msgNoArguments)
	}
	return nil
}

func replyIDArg(_ *cobra.Command, args []string) error {
	if len(args) != 1 {
		return usageError(msgInvalidID)
	}
	if _, err := uuid.Parse(args[0]); err != nil {
		return usageError(msgInvalidID)
	}
	return nil
}

func execContext(cmd *cobra.Command) (*ExecutionContext, error) {
	ec, ok := FromContext(cmd.Context())
	if !ok {
		return nil, errors.New("command invoked without execution context")
	}
	return ec, nil
}

// newRootCmd builds a fresh command tree. A new tree is built for every
// message so concurrent invocations never share flag state.
func (m *Module) newRootCmd() *cobra.Command {
	usage := func(cmd, rest string) string {
		return fmt.Sprintf("%s %s %s%s", m.parser.Prefix, m.parser.Keyword, cmd, rest)
	}

	root := &cobra.Command{
		Use:           m.parser.Keyword,
		Short:         "Automatic replies",
		Long:          moduleDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err.Error())
	})

	root.AddCommand(&cobra.Command{
		Use:   "add",
		Short: "Set up a new reply",
		Long: "Usage: " + usage("add", "") + "\n\n" +
			"Takes no parameters.\n" +
			"Starts a dialogue with which you can set up a new reply.",
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ec, err := execContext(cmd)
			if err != nil {
				return err
			}
			key := dialog.Key{GuildID: ec.Msg.GuildID, UserID: ec.Msg.AuthorID}
			_, err = m.dialogs.Begin(cmd.Context(), dialog.NewSession(m.addDef, key, addDraft{}), ec.Msg)
			return err
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "remove <Reply ID>",
		Short: "Remove a reply",
		Long: "Usage: " + usage("remove", " <Reply ID>") + "\n\n" +
			"Takes a single required parameter in the form of a GUID.\n" +
			"Permanently removes the reply specified by the ID.",
		Args: replyIDArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			ec, err := execContext(cmd)
			if err != nil {
				return err
			}
			id := uuid.MustParse(args[0])
			if !m.store.RemoveRule(ec.Msg.GuildID, id) {
				cmd.Println(msgNoSuchReply)
				return nil
			}
			m.emitRule(cmd.Context(), events.RuleRemoved, ec.Msg, id)
			cmd.Println(msgRemoved)
			if err := m.Persist(cmd.Context(), ec.Msg.GuildID); err != nil {
				cmd.Println(msgSaveFailed)
			}
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "modify",
		Short: "Modify an existing reply",
		Long: "Usage: " + usage("modify", "") + "\n\n" +
			"Takes no parameters.\n" +
			"Starts a dialogue that will guide through modifying an existing reply.",
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ec, err := execContext(cmd)
			if err != nil {
				return err
			}
			key := dialog.Key{GuildID: ec.Msg.GuildID, UserID: ec.Msg.AuthorID}
			_, err = m.dialogs.Begin(cmd.Context(), dialog.NewSession(m.modifyDef, key, modifyDraft{}), ec.Msg)
			return err
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List reply IDs",
		Long: "Usage: " + usage("list", "") + "\n\n" +
			"Takes no parameters.\n" +
			"Lists all IDs of replies that have been registered on this server.",
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ec, err := execContext(cmd)
			if err != nil {
				return err
			}
			ids := m.store.ListIDs(ec.Msg.GuildID)
			if len(ids) == 0 {
				cmd.Println(msgNoReplies)
				return nil
			}

			var b strings.Builder
			b.WriteString(msgListHeader + "\n```\n")
			for _, id := range ids {
				b.WriteString(id.String() + "\n")
			}
			b.WriteString("```\n")
			fmt.Fprintf(&b, "(This command lists only reply IDs, for more information, use `%s`)",
				usage("info", " <Reply ID>"))
			cmd.Println(b.String())
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "info <Reply ID>",
		Short: "Show a reply",
		Long: "Usage: " + usage("info", " <Reply ID>") + "\n\n" +
			"Takes a single required parameter in the form of a GUID.\n" +
			"Displays all information about an existing reply.",
		Args: replyIDArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			ec, err := execContext(cmd)
			if err != nil {
				return err
			}
			rule, ok := m.store.GetRule(ec.Msg.GuildID, uuid.MustParse(args[0]))
			if !ok {
				cmd.Println(msgNoSuchReply)
				return nil
			}
			cmd.Print(rule.Describe())
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "backup",
		Short: "Save replies to persistent storage",
		Long: "Usage: " + usage("backup", "") + "\n\n" +
			"Takes no parameters.\n" +
			"Saves the replies that have been specified on this " +
			"server to the bot's persistent storage.",
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ec, err := execContext(cmd)
			if err != nil {
				return err
			}
			cmd.Println(msgBackupStarted)
			if err := m.Persist(cmd.Context(), ec.Msg.GuildID); err != nil {
				cmd.Println(msgBackupFailed)
				return nil
			}
			cmd.Println(msgBackupDone)
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "load_backup",
		Short: "Restore replies from persistent storage",
		Long: "Usage: " + usage("load_backup", "") + "\n\n" +
			"Takes no parameters.\n" +
			"Replaces the replies of this server with the last saved backup.",
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ec, err := execContext(cmd)
			if err != nil {
				return err
			}
			cmd.Println(msgLoadingBackup)
			_, err = m.Restore(cmd.Context(), ec.Msg.GuildID, "command")
			switch {
			case errors.Is(err, storage.ErrNoBackup):
				cmd.Println(msgNoBackup)
			case err != nil:
				cmd.Println(msgLoadFailed)
			default:
				cmd.Println(msgBackupLoaded)
			}
			return nil
		},
	})

	return root
}
