// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	NetworkFetchFailedId Id = iota + 1
	TrustStoreWriteFailedId
	PackageResolutionFailedId
	LicenseNotAcceptedId
	DependencyResolutionFailedId
	ConfigLoadFailedId
	ContainerEngineNotFoundId
	ImageBuildFailedId
	InvalidPlanId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // vendor or project documentation
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the Markdown guidance with the given glamour style.
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	networkFetchFailedIssue = &Issue{
		id: NetworkFetchFailedId,
		mdMsg: `
# Could not reach the vendor repository!

The signing key or the repository descriptor could not be downloaded.
Nothing was installed; the run stopped at the first failing step.

## Things you can try:
- Check DNS and outbound HTTPS from the build host
- If you are behind a proxy, export ` + "`HTTPS_PROXY`" + ` before running
- Verify the OS release is published by the vendor:
~~~
$ curl -fsSL https://packages.microsoft.com/config/debian/12/prod.list
~~~`,
		docLinks: []HttpLink{"https://learn.microsoft.com/sql/connect/odbc/linux-mac/installing-the-microsoft-odbc-driver-for-sql-server"},
	}

	trustStoreWriteFailedIssue = &Issue{
		id: TrustStoreWriteFailedId,
		mdMsg: `
# Could not write to the package manager trust store!

The keyring or the source list could not be written.

## Things you can try:
- Run the provisioning step as root (container builds run as root by default)
- Check that the filesystem is writable and not full
- Use ` + "`--root`" + ` to provision into a staging directory`,
	}

	packageResolutionFailedIssue = &Issue{
		id: PackageResolutionFailedId,
		mdMsg: `
# Package resolution failed!

apt could not refresh its index or install the driver packages.

## Things you can try:
- Confirm the key and source entry exist:
~~~
$ ls -l /usr/share/keyrings/microsoft-prod.gpg /etc/apt/sources.list.d/mssql-release.list
~~~
- Confirm the OS release matches the base image (` + "`cat /etc/os-release`" + `)
- Re-run with ` + "`--verbose`" + ` to see the full apt output`,
	}

	licenseNotAcceptedIssue = &Issue{
		id: LicenseNotAcceptedId,
		mdMsg: `
# The driver license was not accepted!

msodbcsql17 requires explicit acceptance of the Microsoft end-user license.
The driver was not installed.

## Things you can try:
- Pass the flag:
~~~
$ odbcprov apply --accept-eula
~~~
- Or export the vendor variable in the build environment:
~~~
$ export ACCEPT_EULA=Y
~~~`,
		docLinks: []HttpLink{"https://aka.ms/odbc17eula"},
	}

	dependencyResolutionFailedIssue = &Issue{
		id: DependencyResolutionFailedId,
		mdMsg: `
# Application dependencies could not be installed!

pip could not resolve or install the dependency manifest.

## Things you can try:
- Check the manifest for unsatisfiable version constraints
- Make sure the native driver phase succeeded (pyodbc needs unixODBC headers)
- Re-run with ` + "`--verbose`" + ` to see the full pip output`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The config file, environment or flags are invalid, or a value the command
needs is not set.

## Things you can try:
- Validate the CUE syntax of your config file
- Set the value named in the error, such as ` + "`image.base_image`" + ` for image builds
- Show the effective configuration:
~~~
$ odbcprov config show
~~~`,
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# No container engine found!

Building an image needs Docker or Podman on the PATH.

## Things you can try:
- Install Docker or Podman
- Set ` + "`container.engine`" + ` in your config to the engine you have`,
	}

	imageBuildFailedIssue = &Issue{
		id: ImageBuildFailedId,
		mdMsg: `
# Image build failed!

The provisioning routine failed inside the image build. The build output above
contains the step report.

## Things you can try:
- Run ` + "`odbcprov plan`" + ` to review the steps
- Re-run with ` + "`--verbose`",
	}

	invalidPlanIssue = &Issue{
		id: InvalidPlanId,
		mdMsg: `
# The provisioning plan is invalid!

The steps were rejected before anything ran: a prerequisite is missing, out of
order, or a step would skip a provisioning state.`,
	}

	issues = map[Id]*Issue{
		networkFetchFailedIssue.Id():         networkFetchFailedIssue,
		trustStoreWriteFailedIssue.Id():      trustStoreWriteFailedIssue,
		packageResolutionFailedIssue.Id():    packageResolutionFailedIssue,
		licenseNotAcceptedIssue.Id():         licenseNotAcceptedIssue,
		dependencyResolutionFailedIssue.Id(): dependencyResolutionFailedIssue,
		configLoadFailedIssue.Id():           configLoadFailedIssue,
		containerEngineNotFoundIssue.Id():    containerEngineNotFoundIssue,
		imageBuildFailedIssue.Id():           imageBuildFailedIssue,
		invalidPlanIssue.Id():                invalidPlanIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, iss := range issues {
		out = append(out, iss)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
