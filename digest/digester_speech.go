package digest

import (
	"context"
	"encoding/json"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/vendors"
)

// SpeechRecognitionDigester transcribes audio and video with speaker
// diarization
type SpeechRecognitionDigester struct{}

func (d *SpeechRecognitionDigester) Name() string        { return "speech-recognition" }
func (d *SpeechRecognitionDigester) Label() string       { return "Speech Recognition" }
func (d *SpeechRecognitionDigester) Description() string { return "Transcribe audio/video to text" }
func (d *SpeechRecognitionDigester) OutputNames() []string {
	return []string{"speech-recognition"}
}

func (d *SpeechRecognitionDigester) CanDigest(_ context.Context, file *db.FileRecord, _ []db.Digest) (bool, error) {
	return !file.IsFolder && (isAudio(file) || isVideo(file)), nil
}

func (d *SpeechRecognitionDigester) Digest(ctx context.Context, file *db.FileRecord, _ []db.Digest) ([]Output, error) {
	haid := vendors.GetHAIDClient()
	resp, err := haid.SpeechRecognition(ctx, file.Path, vendors.ASROptions{Diarization: true})
	if err != nil {
		return nil, err
	}

	var transcript transcriptContent
	transcript.Text = resp.Text
	transcript.Language = resp.Language
	for _, seg := range resp.Segments {
		transcript.Segments = append(transcript.Segments, struct {
			Start   float64 `json:"start"`
			End     float64 `json:"end"`
			Text    string  `json:"text"`
			Speaker string  `json:"speaker,omitempty"`
		}{Start: seg.Start, End: seg.End, Text: seg.Text, Speaker: seg.Speaker})
	}

	contentJSON, err := json.Marshal(transcript)
	if err != nil {
		return nil, err
	}

	return []Output{completedOutput("speech-recognition", string(contentJSON))}, nil
}
