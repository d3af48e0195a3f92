package runner

import (
	"regexp"

	"github.com/sakif/learnquest/internal/executor"
	"github.com/sakif/learnquest/internal/executor/workspace"
)

// CSharp is the project-scaffold variant: materialize writes a minimal
// project descriptor next to the submitted source, then a single combined
// build-and-run command (`dotnet run`, or `dotnet test` under a framework)
// does the rest. Compile failures are recognized by the CS error code in the
// toolchain output, since dotnet folds build and run into one exit code.
type CSharp struct {
	dotnet    string
	framework string
}

// csErrorRe matches roslyn compile diagnostics, e.g. "error CS1002: ; expected".
var csErrorRe = regexp.MustCompile(`error CS\d+`)

const csharpConsoleProject = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <OutputType>Exe</OutputType>
    <TargetFramework>net8.0</TargetFramework>
    <ImplicitUsings>enable</ImplicitUsings>
    <Nullable>enable</Nullable>
  </PropertyGroup>
</Project>
`

const csharpNUnitProject = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
    <ImplicitUsings>enable</ImplicitUsings>
    <IsPackable>false</IsPackable>
  </PropertyGroup>
  <ItemGroup>
    <PackageReference Include="Microsoft.NET.Test.Sdk" Version="17.11.1" />
    <PackageReference Include="NUnit" Version="4.2.2" />
    <PackageReference Include="NUnit3TestAdapter" Version="4.6.0" />
  </ItemGroup>
</Project>
`

const csharpXUnitProject = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
    <ImplicitUsings>enable</ImplicitUsings>
    <IsPackable>false</IsPackable>
  </PropertyGroup>
  <ItemGroup>
    <PackageReference Include="Microsoft.NET.Test.Sdk" Version="17.11.1" />
    <PackageReference Include="xunit" Version="2.9.2" />
    <PackageReference Include="xunit.runner.visualstudio" Version="2.8.2" />
  </ItemGroup>
</Project>
`

func (c *CSharp) Materialize(req executor.Request, ws *workspace.Workspace) ([]executor.Command, error) {
	cmd := executor.Command{
		Path: c.dotnet,
		Dir:  ws.Path(),
		Env: []string{
			"DOTNET_CLI_TELEMETRY_OPTOUT=1",
			"DOTNET_NOLOGO=1",
		},
		Language: executor.LangCSharp,
	}

	var project, source string
	switch c.framework {
	case "nunit":
		project, source = csharpNUnitProject, "Tests.cs"
		cmd.Args = []string{"test", "--nologo", "-v", "quiet"}
	case "xunit":
		project, source = csharpXUnitProject, "Tests.cs"
		cmd.Args = []string{"test", "--nologo", "-v", "quiet"}
	default:
		project, source = csharpConsoleProject, "Program.cs"
		cmd.Args = []string{"run", "--project", "."}
	}

	if err := ws.Write("app.csproj", project); err != nil {
		return nil, err
	}
	if err := ws.Write(source, req.Code); err != nil {
		return nil, err
	}
	if err := writeAux(req, ws); err != nil {
		return nil, err
	}
	return []executor.Command{cmd}, nil
}

func (c *CSharp) Interpret(req executor.Request, outcomes []executor.RawOutcome) Verdict {
	out := terminal(outcomes)
	v := Verdict{Stdout: out.Stdout, Stderr: out.Stderr}

	switch {
	case out.ExitCode == 0:
		v.Status = executor.StatusSuccess
	// dotnet prints build diagnostics on stdout; check both streams.
	case csErrorRe.MatchString(out.Stdout) || csErrorRe.MatchString(out.Stderr):
		v.Status = executor.StatusCompileError
	default:
		v.Status = executor.StatusRuntimeError
	}
	return v
}
