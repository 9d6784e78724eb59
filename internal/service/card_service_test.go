package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cardlens/internal/config"
	"cardlens/internal/domain"
	"cardlens/internal/port"
	"cardlens/internal/service"
	"cardlens/mocks"
)

const anthemResponse = `{
	"is_insurance_card": true,
	"confidence": "high",
	"reason": "Shows insurer name, member ID and group number",
	"extraction": {
		"insurance_company": "Anthem Blue Cross",
		"member_name": "JULIA BOLTER",
		"member_id": "JOU183W24276",
		"group_number": "U5463",
		"effective_date": null,
		"additional_info": {
			"plan_type": "PPO",
			"pharmacy_info": {"rx_bin": "003858", "rx_pcn": "A4", "rx_grp": "WLHA"}
		}
	}
}`

func combinedConfig() *config.PipelineConfig {
	return &config.PipelineConfig{ValidationMode: "combined"}
}

func standaloneConfig() *config.PipelineConfig {
	return &config.PipelineConfig{ValidationMode: "standalone"}
}

func frontFile() port.SideFile {
	return port.SideFile{Filename: "front.png", Data: []byte("front-bytes")}
}

func backFile() *port.SideFile {
	return &port.SideFile{Filename: "back.png", Data: []byte("back-bytes")}
}

func frontImages() []domain.NormalizedImage {
	return []domain.NormalizedImage{{Data: []byte("front-img"), MediaType: "image/png"}}
}

func backImages() []domain.NormalizedImage {
	return []domain.NormalizedImage{{Data: []byte("back-img"), MediaType: "image/png"}}
}

func TestProcess_FrontOnly_SampleCard(t *testing.T) {
	norm := new(mocks.MockNormalizer)
	invoker := new(mocks.MockModelInvoker)
	svc := service.NewCardService(norm, invoker, combinedConfig())

	norm.On("Normalize", mock.Anything, frontFile()).Return(frontImages(), nil)
	invoker.On("Invoke", mock.Anything, mock.AnythingOfType("string"), frontImages()).
		Return(anthemResponse, nil).Once()

	out, err := svc.Process(context.Background(), service.ProcessInput{Front: frontFile()})

	require.NoError(t, err)
	require.NotNil(t, out.Validation)
	assert.True(t, out.Validation.IsInsuranceCard)

	require.NotNil(t, out.Extraction)
	assert.Equal(t, "Anthem Blue Cross", out.Extraction.InsuranceCompany)
	assert.Equal(t, "JULIA BOLTER", out.Extraction.MemberName)
	assert.Equal(t, "JOU183W24276", out.Extraction.MemberID)
	assert.Equal(t, "U5463", out.Extraction.GroupNumber)
	assert.Equal(t, domain.NotVisible, out.Extraction.EffectiveDate)
	assert.Empty(t, out.Warning)

	invoker.AssertNumberOfCalls(t, "Invoke", 1)
}

func TestProcess_FrontAndBack_MergedWithFrontPrecedence(t *testing.T) {
	norm := new(mocks.MockNormalizer)
	invoker := new(mocks.MockModelInvoker)
	svc := service.NewCardService(norm, invoker, combinedConfig())

	backResponse := `{
		"is_insurance_card": true,
		"confidence": "medium",
		"reason": "Back of a card",
		"extraction": {
			"insurance_company": null,
			"member_name": null,
			"member_id": "DIFFERENT-ID",
			"group_number": null,
			"effective_date": "01/01/2024",
			"additional_info": {"plan_type": null, "pharmacy_info": {}}
		}
	}`

	norm.On("Normalize", mock.Anything, frontFile()).Return(frontImages(), nil)
	norm.On("Normalize", mock.Anything, *backFile()).Return(backImages(), nil)
	invoker.On("Invoke", mock.Anything, mock.AnythingOfType("string"), frontImages()).
		Return(anthemResponse, nil).Once()
	invoker.On("Invoke", mock.Anything, mock.AnythingOfType("string"), backImages()).
		Return(backResponse, nil).Once()

	out, err := svc.Process(context.Background(), service.ProcessInput{Front: frontFile(), Back: backFile()})

	require.NoError(t, err)
	require.NotNil(t, out.Extraction)
	// Front value wins on disagreement; back fills what front could not read
	assert.Equal(t, "JOU183W24276", out.Extraction.MemberID)
	assert.Equal(t, "01/01/2024", out.Extraction.EffectiveDate)
	assert.Empty(t, out.Warning)

	invoker.AssertNumberOfCalls(t, "Invoke", 2)
}

func TestProcess_BackFailureDegradesWithWarning(t *testing.T) {
	norm := new(mocks.MockNormalizer)
	invoker := new(mocks.MockModelInvoker)
	svc := service.NewCardService(norm, invoker, combinedConfig())

	norm.On("Normalize", mock.Anything, frontFile()).Return(frontImages(), nil)
	norm.On("Normalize", mock.Anything, *backFile()).Return(nil, domain.ErrConversion)
	invoker.On("Invoke", mock.Anything, mock.AnythingOfType("string"), frontImages()).
		Return(anthemResponse, nil).Once()

	out, err := svc.Process(context.Background(), service.ProcessInput{Front: frontFile(), Back: backFile()})

	require.NoError(t, err)
	assert.Equal(t, "JOU183W24276", out.Extraction.MemberID)
	assert.Contains(t, out.Warning, "back side ignored")

	invoker.AssertNumberOfCalls(t, "Invoke", 1)
}

func TestProcess_FrontNormalizeFailureAborts(t *testing.T) {
	norm := new(mocks.MockNormalizer)
	invoker := new(mocks.MockModelInvoker)
	svc := service.NewCardService(norm, invoker, combinedConfig())

	norm.On("Normalize", mock.Anything, frontFile()).Return(nil, domain.ErrUnsupportedFormat)

	out, err := svc.Process(context.Background(), service.ProcessInput{Front: frontFile()})

	assert.Nil(t, out)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	assert.Equal(t, domain.StageNormalize, domain.StageOf(err))
	invoker.AssertNotCalled(t, "Invoke")
}

func TestProcess_InferErrorCarriesStage(t *testing.T) {
	norm := new(mocks.MockNormalizer)
	invoker := new(mocks.MockModelInvoker)
	svc := service.NewCardService(norm, invoker, combinedConfig())

	norm.On("Normalize", mock.Anything, frontFile()).Return(frontImages(), nil)
	invoker.On("Invoke", mock.Anything, mock.AnythingOfType("string"), frontImages()).
		Return("", domain.ErrThrottled)

	_, err := svc.Process(context.Background(), service.ProcessInput{Front: frontFile()})

	assert.ErrorIs(t, err, domain.ErrThrottled)
	assert.Equal(t, domain.StageInfer, domain.StageOf(err))
}

func TestProcess_NotInsuranceCard(t *testing.T) {
	norm := new(mocks.MockNormalizer)
	invoker := new(mocks.MockModelInvoker)
	svc := service.NewCardService(norm, invoker, combinedConfig())

	response := `{"is_insurance_card": false, "confidence": "high", "reason": "This is a library card", "extraction": null}`
	norm.On("Normalize", mock.Anything, frontFile()).Return(frontImages(), nil)
	invoker.On("Invoke", mock.Anything, mock.AnythingOfType("string"), frontImages()).
		Return(response, nil)

	out, err := svc.Process(context.Background(), service.ProcessInput{Front: frontFile()})

	assert.ErrorIs(t, err, domain.ErrNotInsuranceCard)
	assert.Contains(t, err.Error(), "library card")
	require.NotNil(t, out, "validation status is still reported")
	assert.False(t, out.Validation.IsInsuranceCard)
}

func TestProcess_SkipValidation(t *testing.T) {
	norm := new(mocks.MockNormalizer)
	invoker := new(mocks.MockModelInvoker)
	svc := service.NewCardService(norm, invoker, combinedConfig())

	// Model says not a card but still extracts nothing; skip keeps going
	response := `{"is_insurance_card": false, "confidence": "low", "reason": "Blurry image", "extraction": null}`
	norm.On("Normalize", mock.Anything, frontFile()).Return(frontImages(), nil)
	invoker.On("Invoke", mock.Anything, mock.AnythingOfType("string"), frontImages()).
		Return(response, nil)

	out, err := svc.Process(context.Background(), service.ProcessInput{Front: frontFile(), SkipValidation: true})

	require.NoError(t, err)
	require.NotNil(t, out.Extraction, "full schema returned even without extraction")
	assert.Equal(t, domain.NotVisible, out.Extraction.MemberID)
}

func TestProcess_StandaloneValidationMode(t *testing.T) {
	norm := new(mocks.MockNormalizer)
	invoker := new(mocks.MockModelInvoker)
	svc := service.NewCardService(norm, invoker, standaloneConfig())

	validationResp := `{"is_insurance_card": true, "confidence": "high", "reason": "Insurance card"}`
	extractionResp := `{"insurance_company": "Anthem Blue Cross", "member_id": "JOU183W24276"}`

	norm.On("Normalize", mock.Anything, frontFile()).Return(frontImages(), nil)
	validationCall := invoker.On("Invoke", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "identifying insurance cards")
	}), frontImages()).Return(validationResp, nil).Once()
	invoker.On("Invoke", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "extracting information")
	}), frontImages()).Return(extractionResp, nil).Once()
	_ = validationCall

	out, err := svc.Process(context.Background(), service.ProcessInput{Front: frontFile()})

	require.NoError(t, err)
	assert.True(t, out.Validation.IsInsuranceCard)
	assert.Equal(t, "Anthem Blue Cross", out.Extraction.InsuranceCompany)
	assert.Equal(t, domain.NotVisible, out.Extraction.GroupNumber)

	invoker.AssertNumberOfCalls(t, "Invoke", 2)
}

func TestProcess_StandaloneRejectsNonCard(t *testing.T) {
	norm := new(mocks.MockNormalizer)
	invoker := new(mocks.MockModelInvoker)
	svc := service.NewCardService(norm, invoker, standaloneConfig())

	validationResp := `{"is_insurance_card": false, "confidence": "high", "reason": "A restaurant menu"}`
	norm.On("Normalize", mock.Anything, frontFile()).Return(frontImages(), nil)
	invoker.On("Invoke", mock.Anything, mock.AnythingOfType("string"), frontImages()).
		Return(validationResp, nil)

	out, err := svc.Process(context.Background(), service.ProcessInput{Front: frontFile()})

	assert.ErrorIs(t, err, domain.ErrNotInsuranceCard)
	require.NotNil(t, out)
	assert.False(t, out.Validation.IsInsuranceCard)
	invoker.AssertNumberOfCalls(t, "Invoke", 1)
}
