package llm

import "github.com/reddishJade/sports-exem/internal/domain"

// deepSeekTemperatures follows the provider's recommended settings per task type.
var deepSeekTemperatures = map[domain.UseCase]float64{
	domain.UseCaseCoding:      0.0,
	domain.UseCaseData:        1.0,
	domain.UseCaseGeneral:     1.3,
	domain.UseCaseTranslation: 1.3,
	domain.UseCaseCreative:    1.5,
}

// ollamaTemperature is fixed low for the local reasoning model.
const ollamaTemperature = 0.1

// DeepSeekTemperature returns the temperature for a use-case, falling back
// to the general setting for unknown or empty values.
func DeepSeekTemperature(useCase domain.UseCase) float64 {
	if t, ok := deepSeekTemperatures[useCase]; ok {
		return t
	}
	return deepSeekTemperatures[domain.UseCaseGeneral]
}
