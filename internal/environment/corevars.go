package environment

// coreVars lists the variables always eligible for inheritance in closed
// mode. They provide identity, standard paths, and OS services that most
// processes assume are present; they are never secret, and withholding
// them tends to break tools in surprising ways. The user allowlist
// (ENVOY_ALLOWLIST / config) is additive on top of this set.
var coreVars = []string{
	// User identity & home (Windows)
	"USERNAME",
	"USERPROFILE",
	"USERDOMAIN",
	"USERDOMAIN_ROAMINGPROFILE",
	"HOMEDRIVE",
	"HOMEPATH",
	// User data directories
	"APPDATA",
	"LOCALAPPDATA",
	"PUBLIC",
	// Temp
	"TEMP",
	"TMP",
	"TMPDIR",
	// System / Windows layout
	"SystemRoot",
	"SystemDrive",
	"windir",
	"ProgramFiles",
	"ProgramFiles(x86)",
	"ProgramW6432",
	"CommonProgramFiles",
	"CommonProgramFiles(x86)",
	"CommonProgramW6432",
	// Hardware / OS identity
	"COMPUTERNAME",
	"OS",
	"PROCESSOR_ARCHITECTURE",
	"PROCESSOR_IDENTIFIER",
	"PROCESSOR_LEVEL",
	"PROCESSOR_REVISION",
	"NUMBER_OF_PROCESSORS",
	// Shell / console
	"COMSPEC",
	"TERM",
	"TERM_PROGRAM",
	"COLORTERM",
	// Unix identity
	"HOME",
	"USER",
	"LOGNAME",
	"SHELL",
	// Locale / encoding
	"LANG",
	"LC_ALL",
	"LC_CTYPE",
	"LC_MESSAGES",
	// XDG base dirs
	"XDG_RUNTIME_DIR",
	"XDG_CONFIG_HOME",
	"XDG_DATA_HOME",
	"XDG_CACHE_HOME",
}

// CoreVars returns a copy of the closed-mode core variable names.
func CoreVars() []string {
	out := make([]string, len(coreVars))
	copy(out, coreVars)
	return out
}
