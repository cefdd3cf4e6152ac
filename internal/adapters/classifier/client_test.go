package classifier

import "testing"

func TestParseClassification(t *testing.T) {
	body := []byte(`{
		"result": {
			"predictions": [{
				"term": "parfum eser",
				"uncertain": false,
				"predictions": [
					{"code": "PA-1", "name": "Parfum Wanita", "score": 85},
					{"code": "PA-2", "name": "Parfum Pria", "score": 60}
				]
			}]
		},
		"token_details": {"prompt_tokens": 1200, "candidates_tokens": 80, "total_tokens": 1280}
	}`)

	got, err := parseClassification("parfum eser", body)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got.Term != "parfum eser" {
		t.Fatalf("ожидали термин без изменений, получили %q", got.Term)
	}
	if got.Uncertain {
		t.Fatalf("не ожидали uncertain")
	}
	if len(got.Predictions) != 2 {
		t.Fatalf("ожидали 2 предсказания, получили %d", len(got.Predictions))
	}
	if got.Predictions[0].Code != "PA-1" || got.Predictions[0].Score != 85 {
		t.Fatalf("первое предсказание разобрано неверно: %+v", got.Predictions[0])
	}
	if got.Usage.TotalTokens != 1280 {
		t.Fatalf("ожидали 1280 токенов, получили %d", got.Usage.TotalTokens)
	}
}

func TestParseClassificationFillsTerm(t *testing.T) {
	body := []byte(`{"result":{"predictions":[{"uncertain":true,"predictions":[]}]}}`)
	got, err := parseClassification("kaos", body)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got.Term != "kaos" {
		t.Fatalf("пустой термин в ответе должен заменяться исходным, получили %q", got.Term)
	}
	if !got.Uncertain {
		t.Fatalf("ожидали uncertain")
	}
}

func TestParseClassificationInvalid(t *testing.T) {
	cases := map[string]string{
		"не JSON":             `plain text`,
		"пустые предсказания": `{"result":{"predictions":[]}}`,
		"без code и name":     `{"result":{"predictions":[{"term":"x","predictions":[{"score":90}]}]}}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := parseClassification("x", []byte(payload)); err == nil {
				t.Fatalf("ожидали ошибку для %q", payload)
			}
		})
	}
}
