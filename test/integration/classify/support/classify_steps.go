package support

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/MeKo-Tech/soilsense/internal/pipeline"
	"github.com/MeKo-Tech/soilsense/internal/testutil"
	"github.com/cucumber/godog"
)

func (testCtx *TestContext) theModelPredicts(list string) error {
	probs, err := parseProbabilities(list)
	if err != nil {
		return err
	}
	testCtx.Probabilities = probs
	return nil
}

func (testCtx *TestContext) theAcceptanceThresholdIs(threshold float64) error {
	if testCtx.Pipeline != nil {
		return errors.New("threshold must be set before the first classification")
	}
	testCtx.Threshold = threshold
	return nil
}

func (testCtx *TestContext) iClassifyASoilPhotoEncodedAs(format string) error {
	data, err := encodeSoilPhoto(format)
	if err != nil {
		return err
	}
	return testCtx.Run(data)
}

func (testCtx *TestContext) iClassifyAnEmptyUpload() error {
	return testCtx.Run([]byte{})
}

func (testCtx *TestContext) iClassifyTheBytes(text string) error {
	return testCtx.Run([]byte(text))
}

func (testCtx *TestContext) iClassifyTheSamePhotoAgain() error {
	testCtx.FirstResult = testCtx.LastResult
	return testCtx.Run(testCtx.LastInput)
}

func (testCtx *TestContext) theStatusShouldBe(status string) error {
	if testCtx.LastResult == nil {
		return errors.New("no classification has been run")
	}
	if string(testCtx.LastResult.Status) != status {
		return fmt.Errorf("expected status %q, got %q (message: %s)",
			status, testCtx.LastResult.Status, testCtx.LastResult.Message)
	}
	return nil
}

func (testCtx *TestContext) theSoilTypeShouldBe(name string) error {
	if testCtx.LastResult.SoilType != name {
		return fmt.Errorf("expected soil type %q, got %q", name, testCtx.LastResult.SoilType)
	}
	return nil
}

func (testCtx *TestContext) theConfidenceShouldBe(want float64) error {
	if math.Abs(testCtx.LastResult.Confidence-want) > 1e-9 {
		return fmt.Errorf("expected confidence %.2f, got %.2f", want, testCtx.LastResult.Confidence)
	}
	return nil
}

func (testCtx *TestContext) theRecommendedCropsShouldBe(list string) error {
	want := strings.Split(list, ",")
	got := make([]string, 0, len(testCtx.LastResult.Crops))
	for _, c := range testCtx.LastResult.Crops {
		got = append(got, c.Name)
	}
	if len(got) != len(want) {
		return fmt.Errorf("expected crops %v, got %v", want, got)
	}
	for i := range want {
		if strings.TrimSpace(want[i]) != got[i] {
			return fmt.Errorf("expected crops %v, got %v", want, got)
		}
	}
	return nil
}

func (testCtx *TestContext) thereShouldBeNoRecommendations() error {
	if len(testCtx.LastResult.Crops) != 0 {
		return fmt.Errorf("expected no crops, got %d", len(testCtx.LastResult.Crops))
	}
	return nil
}

func (testCtx *TestContext) theReasonShouldBe(reason string) error {
	if testCtx.LastResult.Reason != reason {
		return fmt.Errorf("expected reason %q, got %q", reason, testCtx.LastResult.Reason)
	}
	return nil
}

func (testCtx *TestContext) theMessageShouldContain(text string) error {
	if !strings.Contains(testCtx.LastResult.Message, text) {
		return fmt.Errorf("expected message to contain %q, got %q", text, testCtx.LastResult.Message)
	}
	return nil
}

func (testCtx *TestContext) theModelShouldHaveBeenCalledTimes(n int) error {
	if testCtx.Model == nil {
		return errors.New("no model configured")
	}
	if got := testCtx.Model.Calls(); got != int64(n) {
		return fmt.Errorf("expected %d model calls, got %d", n, got)
	}
	return nil
}

func (testCtx *TestContext) bothResultsShouldBeIdentical() error {
	if testCtx.FirstResult == nil || testCtx.LastResult == nil {
		return errors.New("two classifications are required")
	}
	a, b := *testCtx.FirstResult, *testCtx.LastResult
	a.Processing, b.Processing = pipeline.Timings{}, pipeline.Timings{}
	if !reflect.DeepEqual(a, b) {
		return fmt.Errorf("results differ:\n%+v\n%+v", a, b)
	}
	return nil
}

func encodeSoilPhoto(format string) ([]byte, error) {
	return testutil.Encode(format, testutil.GenerateSoilImage(testutil.DefaultSoilImageConfig()))
}

// RegisterClassifySteps registers pipeline-level steps.
func (testCtx *TestContext) RegisterClassifySteps(sc *godog.ScenarioContext) {
	sc.Step(`^the model predicts "([^"]*)"$`, testCtx.theModelPredicts)
	sc.Step(`^the acceptance threshold is ([0-9.]+)$`, testCtx.theAcceptanceThresholdIs)
	sc.Step(`^I classify a soil photo encoded as (\w+)$`, testCtx.iClassifyASoilPhotoEncodedAs)
	sc.Step(`^I classify an empty upload$`, testCtx.iClassifyAnEmptyUpload)
	sc.Step(`^I classify the bytes "([^"]*)"$`, testCtx.iClassifyTheBytes)
	sc.Step(`^I classify the same photo again$`, testCtx.iClassifyTheSamePhotoAgain)
	sc.Step(`^the status should be "([^"]*)"$`, testCtx.theStatusShouldBe)
	sc.Step(`^the soil type should be "([^"]*)"$`, testCtx.theSoilTypeShouldBe)
	sc.Step(`^the confidence should be ([0-9.]+)$`, testCtx.theConfidenceShouldBe)
	sc.Step(`^the recommended crops should be "([^"]*)"$`, testCtx.theRecommendedCropsShouldBe)
	sc.Step(`^there should be no recommendations$`, testCtx.thereShouldBeNoRecommendations)
	sc.Step(`^the reason should be "([^"]*)"$`, testCtx.theReasonShouldBe)
	sc.Step(`^the message should contain "([^"]*)"$`, testCtx.theMessageShouldContain)
	sc.Step(`^the model should have been called (\d+) times?$`, testCtx.theModelShouldHaveBeenCalledTimes)
	sc.Step(`^both results should be identical$`, testCtx.bothResultsShouldBeIdentical)
}
