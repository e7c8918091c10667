package replies

// Command responses.
const (
	msgNoArguments    = "This command takes no arguments."
	msgInvalidID      = "The argument of this command must be a valid Reply ID."
	msgRemoved        = "The reply was removed successfully."
	msgNoSuchReply    = "There is no reply with this ID."
	msgNoReplies      = "No replies registered."
	msgListHeader     = "Replies registered on this server:"
	msgBackupStarted  = "Starting the backup ..."
	msgBackupDone     = "Backup finished successfully."
	msgBackupFailed   = "The backup could not be saved."
	msgLoadingBackup  = "Loading the backup ..."
	msgBackupLoaded   = "Backup loaded successfully."
	msgNoBackup       = "There is no backup to load."
	msgLoadFailed     = "The backup could not be loaded."
	msgUnknownCommand = "Unknown command."
	msgCommandFailed  = "Something went wrong while running the command."
	msgSaveFailed     = "The change could not be saved to persistent storage."
	msgTerminating    = "Terminating dialogue"
	msgAdding         = "Adding reply ..."
	msgSaving         = "Saving changes ..."
	msgChangeAnother  = "Change another value? [y/N]"
	msgTriggerEmpty   = "The trigger cannot be empty, please try again."
	msgMatchTypeRetry = "The match type was not recognized, please try again."
	msgUsersRetry     = "No valid IDs have been found, please try again or specify `everyone` explicitly"
	msgChannelsRetry  = "No valid IDs have been found, please try again or specify `anywhere` explicitly"
	msgRuleVanished   = "The reply was removed while it was being modified."
	moduleDescription = "This module implements the reply functionality, " +
		"you can make the bot reply to messages, users and in " +
		"channels of your choosing. Use the commands below to " +
		"set up the replies you want."
)

// Add dialogue prompts.
const (
	promptTrigger   = "Specify trigger, type `everything` to make the bot respond to everything."
	promptMatchType = "Specify match type [any, full, startsWith, endsWith]"
	promptReply     = "Specify reply body"
	promptUsers     = "Specify target users via mentions or IDs [separate each ID with any sequence of non-numeric characters, or you can use `everyone`]"
	promptChannels  = "Specify target channels [or use `anywhere`]"
)

// Modify dialogue prompts.
const (
	promptReplyID      = "Specify the ID of the reply to be modified"
	promptSelected     = "Reply selected, specify which value you'd like to modify [trigger, reply, matchCondition, users, channels]"
	promptModValue     = "Specify which value you'd like to modify [trigger, reply, matchCondition, users, channels]"
	msgNoSuchRuleRetry = "There is no reply with this ID, please try another."
	msgInvalidIDRetry  = "That is not a valid ID, please try again"
	msgModValueRetry   = "Invalid value keyword, please try again"
)

// Keywords understood by the dialogues.
const (
	kwEverything = "everything"
	kwEveryone   = "everyone"
	kwAnywhere   = "anywhere"
)
