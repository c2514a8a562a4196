package transcription

import (
	"fmt"
	"strings"
)

const notAvailable = "N/A"

const outputRules = `Ensure the entire output is ONLY the JSON object. Do not include any explanatory text, markdown formatting (like ` + "```json" + `), or anything else before or after the JSON.`

const freshFields = `Extract the following information and provide it in a single, valid JSON object format:
1.  patientName (string)
2.  age (string)
3.  gender (string)
4.  complaints (string, a summary. This should include current complaints AND relevant patient-reported history, for example, phrases like "No history of..." or "Past history of...")
5.  examination (string, a summary of the physical examination findings by the doctor)
6.  diagnosis (string, a summary)
7.  medications (array of objects, where each object MUST have "name", "instructions", and "duration" fields).
    - For each medication mentioned in the audio, accurately capture its name, the specific instructions given, and the specific duration given.
    - Use the provided lists of known medication names, common instructions, and common durations to help improve accuracy of transcription and interpretation, but prioritize the doctor's exact narrated details for each specific medication.
    - If a medication name mentioned is not in the known list, transcribe it as heard.
    - If instructions or duration for a specific medication are unclear or not provided in the narration, set them to "N/A".`

const freshExample = `Example JSON output structure:
{
  "patientName": "Mrs Rana Shahid",
  "age": "38 years",
  "gender": "Female",
  "complaints": "Headache, Neck pain, Disturbed sleep x 3 days",
  "examination": "No Neurological Deficit B.P 130/85",
  "diagnosis": "TH, HTN",
  "medications": [
    { "name": "Tab Atcam 8 mg", "instructions": "1 tablet at night for three days, then when needed", "duration": "15" },
    { "name": "Aspirin", "instructions": "1 tablet daily", "duration": "N/A" }
  ]
}`

const updateFields = `Based on the NEW audio narration, update the patient's information. Provide the complete, updated information in a single, valid JSON object format with the following fields:
1.  patientName (string, update if clearly stated as different)
2.  age (string, update if clearly stated as different)
3.  gender (string, update if clearly stated as different)
4.  complaints (string, update with new information or merge intelligently. This should include current complaints AND relevant patient-reported history from the new audio.)
5.  examination (string, update with new findings)
6.  diagnosis (string, update with new diagnosis)
7.  medications (array of objects, where each object MUST have "name", "instructions", and "duration" fields). Update this list based on the new audio. If new medications are added, include them. If existing medications are explicitly changed (e.g., dosage, duration) or stopped, reflect that. If medications are not discussed, you may carry over the existing ones if appropriate, or the doctor might state to continue them.

Prioritize the doctor's exact narrated details for each specific medication in the new audio.
If instructions or duration for a medication (new or existing being modified) are unclear or not provided in the new narration, set them to "N/A".`

const updateExample = `Example JSON output structure (this is the FULL structure to return, updated):
{
  "patientName": "Updated Name if any",
  "age": "Updated Age if any",
  "gender": "Updated Gender if any",
  "complaints": "Updated or merged complaints",
  "examination": "Updated examination findings",
  "diagnosis": "Updated diagnosis",
  "medications": [
    { "name": "Tab Atcam 8 mg", "instructions": "Updated instructions", "duration": "Updated duration" },
    { "name": "NewMed", "instructions": "1 daily", "duration": "5 days" }
  ]
}`

// BuildPrompt returns the fresh-extraction prompt, or the update prompt
// when prior state is given.
func BuildPrompt(vocab *Vocabulary, prior *StructuredVisit) string {
	if vocab == nil {
		vocab = &Vocabulary{}
	}
	var b strings.Builder

	if prior != nil {
		b.WriteString("You are an expert medical assistant. You are given existing patient report data and a new audio narration from a doctor for the same patient.\n")
		b.WriteString("Listen to the audio and intelligently UPDATE the provided existing data based on the doctor's new narration.\n")
		b.WriteString("Focus on modifying fields if the doctor provides new or changed information for them. If a field is not mentioned in the new audio, try to keep its existing value unless the new context implies it should be cleared or changed.\n\n")
		b.WriteString("Here is the existing patient report data:\n")
		writeExisting(&b, prior)
		b.WriteString("\n")
		writeBlock(&b, "Here is a list of known medication names that might be mentioned:", "KNOWN MEDICATION NAMES", strings.Join(vocab.MedicationNames, ", "))
		writeBlock(&b, "Common instructions phrasings:", "COMMON INSTRUCTIONS", strings.Join(vocab.Instructions, "; "))
		writeBlock(&b, "Common durations phrasings:", "COMMON DURATIONS", strings.Join(vocab.Durations, "; "))
		b.WriteString(updateFields + "\n\n" + outputRules + "\n\n" + updateExample + "\n")
		return b.String()
	}

	b.WriteString("You are an expert medical assistant. Listen to the following audio of a doctor's narration for a patient report.\n")
	b.WriteString("The doctor will mention patient details, complaints, examination findings, diagnosis, and medications (including their specific instructions and durations).\n\n")
	writeBlock(&b, "Here is a list of known medication names that might be mentioned:", "KNOWN MEDICATION NAMES", strings.Join(vocab.MedicationNames, ", "))
	writeBlock(&b, "Here is a list of common phrasings for instructions that might be used:", "COMMON INSTRUCTIONS", strings.Join(vocab.Instructions, "; "))
	writeBlock(&b, "Here is a list of common phrasings for durations that might be used:", "COMMON DURATIONS", strings.Join(vocab.Durations, "; "))
	b.WriteString(freshFields + "\n\n" + outputRules + "\n\n" + freshExample + "\n")
	return b.String()
}

func writeBlock(b *strings.Builder, intro, label, body string) {
	fmt.Fprintf(b, "%s\n--- %s START ---\n%s\n--- %s END ---\n\n", intro, label, body, label)
}

func writeExisting(b *strings.Builder, p *StructuredVisit) {
	b.WriteString("--- EXISTING DATA START ---\n")
	fmt.Fprintf(b, "Patient Name: %s\n", orNA(p.PatientName))
	fmt.Fprintf(b, "Age: %s\n", orNA(p.Age))
	fmt.Fprintf(b, "Gender: %s\n", orNA(p.Gender))
	fmt.Fprintf(b, "Complaints: %s\n", orNA(p.Complaints))
	fmt.Fprintf(b, "Examination: %s\n", orNA(p.Examination))
	fmt.Fprintf(b, "Diagnosis: %s\n", orNA(p.Diagnosis))
	b.WriteString("Medications:\n")
	if len(p.Medications) == 0 {
		b.WriteString(notAvailable + "\n")
	}
	for _, m := range p.Medications {
		fmt.Fprintf(b, "- %s; %s; %s\n", m.Name, m.Instructions, m.Duration)
	}
	b.WriteString("--- EXISTING DATA END ---\n")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}
