package support

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/code11/internal/testutil"
	"github.com/cucumber/godog"
)

// RegisterServerSteps registers HTTP server step definitions.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the validation server is running$`, testCtx.theValidationServerIsRunning)
	sc.Step(`^the validation server is running with check characters enabled$`,
		testCtx.theValidationServerIsRunningWithCheck)
	sc.Step(`^the validation server is running with a limit of (\d+) requests per minute$`,
		testCtx.theValidationServerIsRunningWithRateLimit)

	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGET)
	sc.Step(`^I POST to "([^"]*)" with body:$`, testCtx.iPOSTWithBody)
	sc.Step(`^I validate the labels "([^"]*)"$`, testCtx.iValidateTheLabels)
	sc.Step(`^I validate the labels "([^"]*)" (\d+) times$`, testCtx.iValidateTheLabelsTimes)

	sc.Step(`^I validate the fixture "([^"]*)"$`, testCtx.iValidateTheFixture)
	sc.Step(`^the result should match the fixture$`, testCtx.theResultShouldMatchTheFixture)

	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseFieldShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
}

func (testCtx *TestContext) theValidationServerIsRunning() error {
	return testCtx.startTestHTTPServer(defaultServerConfig())
}

func (testCtx *TestContext) theValidationServerIsRunningWithCheck() error {
	cfg := defaultServerConfig()
	cfg.Defaults.UseCheck = true
	return testCtx.startTestHTTPServer(cfg)
}

func (testCtx *TestContext) theValidationServerIsRunningWithRateLimit(perMinute int) error {
	cfg := defaultServerConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerMinute = perMinute
	return testCtx.startTestHTTPServer(cfg)
}

func (testCtx *TestContext) iGET(path string) error {
	return testCtx.doRequest("GET", path, "")
}

func (testCtx *TestContext) iPOSTWithBody(path string, body *godog.DocString) error {
	return testCtx.doRequest("POST", path, body.Content)
}

func (testCtx *TestContext) iValidateTheLabels(text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}
	return testCtx.doRequest("POST", "/validate", string(body))
}

func (testCtx *TestContext) iValidateTheLabelsTimes(text string, times int) error {
	for range times {
		if err := testCtx.iValidateTheLabels(text); err != nil {
			return err
		}
	}
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatusCode != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseFieldShouldBe(path, expected string) error {
	var doc interface{}
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &doc); err != nil {
		return fmt.Errorf("response is not JSON: %w", err)
	}

	value, err := lookupField(doc, path)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(value); got != expected {
		return fmt.Errorf("field %s: expected %q, got %q", path, expected, got)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain %q: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, expected string) error {
	if got := testCtx.LastHTTPHeaders[name]; got != expected {
		return fmt.Errorf("header %s: expected %q, got %q", name, expected, got)
	}
	return nil
}

// lookupField walks a dotted path such as "results.0.result.valid".
func lookupField(doc interface{}, path string) (interface{}, error) {
	current := doc
	for _, part := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			v, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field %q not found in path %s", part, path)
			}
			current = v
		case []interface{}:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("invalid index %q in path %s", part, path)
			}
			current = node[i]
		default:
			return nil, fmt.Errorf("cannot descend into %q in path %s", part, path)
		}
	}
	return current, nil
}

func (testCtx *TestContext) iValidateTheFixture(name string) error {
	fixtures, err := testutil.ReadFixtures(testutil.FixturesPath(testCtx.ProjectRoot))
	if err != nil {
		return err
	}
	f, ok := testutil.FindFixture(fixtures, name)
	if !ok {
		return fmt.Errorf("no fixture named %q", name)
	}
	testCtx.LastFixture = &f

	body, err := json.Marshal(map[string]interface{}{
		"labels":     f.Labels,
		"use_check":  f.UseCheck,
		"min_digits": f.MinDigits,
	})
	if err != nil {
		return err
	}
	return testCtx.doRequest("POST", "/validate", string(body))
}

func (testCtx *TestContext) theResultShouldMatchTheFixture() error {
	f := testCtx.LastFixture
	if f == nil {
		return fmt.Errorf("no fixture was validated")
	}
	if err := testCtx.theResponseStatusShouldBe(200); err != nil {
		return err
	}
	if err := testCtx.theResponseFieldShouldBe("result.valid", strconv.FormatBool(f.Valid)); err != nil {
		return err
	}
	if f.CheckChar == "" {
		if strings.Contains(testCtx.LastHTTPResponse, `"check_char"`) {
			return fmt.Errorf("fixture %s expects no check character: %s", f.Name, testCtx.LastHTTPResponse)
		}
		return nil
	}
	return testCtx.theResponseFieldShouldBe("result.check_char", f.CheckChar)
}
