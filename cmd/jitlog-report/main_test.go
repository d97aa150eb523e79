package main_test

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/containerd/nerdctl/mod/tigron/expect"
	"github.com/containerd/nerdctl/mod/tigron/test"
	"github.com/containerd/nerdctl/mod/tigron/tig"

	"github.com/skiretic/voodoo-jitlog/internal/testutils"
)

func expectContains(substrs ...string) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		for _, substr := range substrs {
			if !strings.Contains(stdout, substr) {
				testing.Log(fmt.Sprintf("expected substring %q not found in output:\n%s", substr, stdout))
				testing.Fail()
			}
		}
	}
}

// withLogFolder saves a folder of logs covering several verdicts.
func withLogFolder(data test.Data, _ test.Helpers) {
	data.Temp().Save(testutils.HealthyLog(), "logs", "a-healthy.log")
	data.Temp().Save(testutils.FallbackLog(), "logs", "b-fallback.log")
	data.Temp().Save(testutils.NoJITLog(), "logs", "nested", "c-nojit.log")
	data.Temp().Save("not a log", "logs", "notes.txt")

	data.Labels().Set("folder", data.Temp().Dir("logs"))
	data.Labels().Set("report", data.Temp().Path("jitlog-report.jsonl"))
}

func TestJitlogReportCLI(t *testing.T) {
	testCase := testutils.Setup("jitlog-report")

	testCase.SubTests = []*test.Case{
		{
			Description: "version names the binary",
			Command:     test.Command("--version"),
			Expected:    test.Expects(expect.ExitCodeSuccess, nil, expectContains("jitlog-report version")),
		},
		{
			Description: "report without arguments fails",
			Command:     test.Command("report"),
			Expected:    test.Expects(expect.ExitCodeGenericFail, nil, nil),
		},
		{
			Description: "report on a missing folder fails",
			Command:     test.Command("report", "/nonexistent/folder"),
			Expected:    test.Expects(expect.ExitCodeGenericFail, nil, nil),
		},
		{
			Description: "report analyzes every log and prints a digest",
			Setup:       withLogFolder,
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return helpers.Command("report", "-j", "2", "-o", data.Labels().Get("report"), data.Labels().Get("folder"))
			},
			Expected: test.Expects(expect.ExitCodeSuccess, nil, expectContains(
				"=== JIT Log Report Digest ===",
				"Total logs:    3",
				"HEALTHY",
				"FUNCTIONAL_WITH_FALLBACKS",
				"JIT_NOT_ACTIVE",
			)),
		},
		{
			Description: "digest filters by verdict",
			Setup:       withLogFolder,
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				helpers.Ensure("report", "-o", data.Labels().Get("report"), data.Labels().Get("folder"))

				return helpers.Command("digest", "--verdict", "HEALTHY", data.Labels().Get("report"))
			},
			Expected: func(data test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output: expectContains(
						"=== HEALTHY: 1 logs ===",
						filepath.Join(data.Labels().Get("folder"), "a-healthy.log"),
					),
				}
			},
		},
		{
			Description: "digest rejects an unknown verdict",
			Setup:       withLogFolder,
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				helpers.Ensure("report", "-o", data.Labels().Get("report"), data.Labels().Get("folder"))

				return helpers.Command("digest", "--verdict", "GREAT", data.Labels().Get("report"))
			},
			Expected: test.Expects(expect.ExitCodeGenericFail, nil, nil),
		},
	}

	testCase.Run(t)
}
