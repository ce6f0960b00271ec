package version

import (
	"bytes"
	"encoding/json"
	"runtime"
	"text/template"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Template field labels
const (
	VersionLabel   = "Version:"
	CommitLabel    = "Git commit:"
	BuiltLabel     = "Built:"
	GoVersionLabel = "Go version:"
	OSArchLabel    = "OS/Arch:"
)

var versionTemplate = template.Must(template.New("version").Parse(`
 ` + VersionLabel + `	{{.Version}}
 ` + CommitLabel + `	{{.GitCommit}}
 ` + BuiltLabel + `		{{.BuildTime}}
 ` + GoVersionLabel + `	{{.GoVersion}}
 ` + OSArchLabel + `	{{.Os}}/{{.Arch}}
`))

type versionInfo struct {
	// build-time info
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	// client machine info
	GoVersion string `json:"go_version"`
	Os        string `json:"os"`
	Arch      string `json:"arch"`
}

func (v *versionInfo) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	if err := versionTemplate.Execute(&buf, v); err != nil {
		return nil, errors.Wrap(err, "template executing error")
	}
	return buf.Bytes(), nil
}

func current() *versionInfo {
	return &versionInfo{
		Version:   getVersion(),
		GitCommit: getCommit(),
		BuildTime: getBuildTimeDisplay(),
		GoVersion: runtime.Version(),
		Os:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

func NewVersionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display the application version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := current()
			var (
				out []byte
				err error
			)
			if asJSON {
				out, err = json.MarshalIndent(info, "", "  ")
				out = append(out, '\n')
			} else {
				out, err = info.MarshalText()
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print version information as JSON")
	return cmd
}
