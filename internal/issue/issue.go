// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"slices"

	"github.com/charmbracelet/glamour"
)

const (
	CredentialsMissingId Id = iota + 1
	ConfigLoadFailedId
	ContainerEngineNotFoundId
	DockerfileNotFoundId
	ImageBuildFailedId
	ContainerStartFailedId
	MailboxLoginFailedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the issue Markdown with the given glamour style ("dark",
// "light", "notty" or a path to a JSON style file).
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

	credentialsMissingIssue = &Issue{
		id: CredentialsMissingId,
		mdMsg: `
# Mail credentials are missing!

Both ` + "`EMAIL_USERNAME`" + ` and ` + "`EMAIL_PASSWORD`" + ` must be set, either exported in
your shell or written to a ` + "`.env`" + ` file next to the Dockerfile.

## Example .env
~~~
EMAIL_USERNAME=you@gmail.com
EMAIL_PASSWORD=app-password
ALLOWED_TRADERS=/id/trader1,/profiles/76561198000000000
CHECK_INTERVAL=300
~~~

For Gmail, create an app password; your normal account password will be
rejected over IMAP.`,
		docLinks: []HttpLink{"https://support.google.com/accounts/answer/185833"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The ` + "`.env`" + ` file or the environment contains a value that could not be used.

## Things you can try:
- Check that every line is ` + "`KEY=VALUE`" + `; comments start with ` + "`#`" + `
- ` + "`CHECK_INTERVAL`" + ` must be a positive number of seconds
- ` + "`ALLOWED_TRADERS`" + ` must contain at least one trader, comma separated
- Show what tradewatch sees:
~~~
$ tradewatch config show
~~~`,
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# No container engine found!

Deploying needs Docker or Podman on your PATH.

## Things you can try:
- Install Docker or Podman
- Make sure the daemon is running:
~~~
$ docker version
~~~
- Pick the engine explicitly:
~~~
$ tradewatch deploy --engine podman
~~~`,
		docLinks: []HttpLink{"https://docs.docker.com/engine/install/", "https://podman.io/docs/installation"},
	}

	dockerfileNotFoundIssue = &Issue{
		id: DockerfileNotFoundId,
		mdMsg: `
# Dockerfile not found!

The build context does not contain the Dockerfile the deploy command expects.

## Things you can try:
- Run the command from the repository root
- Point to the build context and Dockerfile explicitly:
~~~
$ tradewatch deploy --context . --dockerfile Dockerfile
~~~`,
	}

	imageBuildFailedIssue = &Issue{
		id: ImageBuildFailedId,
		mdMsg: `
# Image build failed!

The container image could not be built, so no container was started.

## Things you can try:
- Re-run with ` + "`--verbose`" + ` to see the full build output
- Check that the base images can be pulled from your network
- Try building by hand:
~~~
$ docker build -t steam-trade-accepter:latest .
~~~`,
	}

	containerStartFailedIssue = &Issue{
		id: ContainerStartFailedId,
		mdMsg: `
# Container failed to start!

The image was built but the container could not be started.

## Things you can try:
- Check for a leftover container with the same name:
~~~
$ docker ps -a --filter name=steam-trade-accepter
~~~
- Inspect the engine error above and retry the deploy`,
	}

	mailboxLoginFailedIssue = &Issue{
		id: MailboxLoginFailedId,
		mdMsg: `
# Could not log in to the mailbox!

The IMAP server rejected the connection or the credentials.

## Things you can try:
- Verify ` + "`EMAIL_SERVER`" + ` (e.g. ` + "`imap.gmail.com`" + `) and that IMAP is enabled
- Use an app password instead of the account password
- The service keeps retrying every reconnect interval; fix the
  credentials and redeploy`,
	}

	issues = map[Id]*Issue{
		credentialsMissingIssue.Id():      credentialsMissingIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		dockerfileNotFoundIssue.Id():      dockerfileNotFoundIssue,
		imageBuildFailedIssue.Id():        imageBuildFailedIssue,
		containerStartFailedIssue.Id():    containerStartFailedIssue,
		mailboxLoginFailedIssue.Id():      mailboxLoginFailedIssue,
	}
)

// Values returns every catalogued issue ordered by ID.
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
