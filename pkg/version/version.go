package version

// Version is overridden at build time:
//
//	go build -ldflags "-X github.com/alucardeht/spreadsheet-agent/pkg/version.Version=1.2.3"
var Version = "dev"

const ProtocolVersion = "2025-06-18"

var SupportedProtocolVersions = []string{
	"2025-06-18",
	"2025-03-26",
	"2024-11-05",
}

const ServerName = "spreadsheet-agent"
