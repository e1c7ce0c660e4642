// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"fmt"
	"strings"
)

// routineConfigFile is the config file's name in the build context.
const routineConfigFile = "odbcprov.cue"

// generateDockerfile creates the Dockerfile of the provisioned layer.
func (p *LayerProvisioner) generateDockerfile(baseImage string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "FROM %s\n\n", baseImage)
	sb.WriteString("# odbcprov provisioning layer\n\n")

	fmt.Fprintf(&sb, "COPY odbcprov %s/odbcprov\n", binaryMountPath)
	fmt.Fprintf(&sb, "COPY requirements.txt %s\n", ImageManifestPath)

	configFlag := ""
	if p.config.RoutineConfig != "" {
		fmt.Fprintf(&sb, "COPY %s %s\n", routineConfigFile, ImageConfigPath)
		configFlag = " --config " + ImageConfigPath
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "RUN chmod +x %s/odbcprov \\\n", binaryMountPath)
	fmt.Fprintf(&sb, " && %s/odbcprov apply%s --platform container --accept-eula=%t --manifest %s\n\n",
		binaryMountPath, configFlag, p.config.AcceptEULA, ImageManifestPath)

	fmt.Fprintf(&sb, "ENV PATH=\"%s:$PATH\"\n", binaryMountPath)
	fmt.Fprintf(&sb, "EXPOSE %d\n", p.config.Port)

	return sb.String()
}
