// Package meeting drives a persona roster through a structured deliberation:
// preparation, discussion rounds, a final review and a vote.
//
// Every generation request goes through a Requester (normally a
// retry.Orchestrator), so a Meeting never sees a generation error; failed
// calls surface as the retry sentinel text and are recorded in the transcript
// with Failed set. The only error Run returns is a *PhaseError.
//
// State progression:
//
//	INIT -> PREP -> DISCUSS(1..MaxRounds) -> CONCLUDE -> VOTE -> DONE
//
// FAILED is reachable from every phase.
package meeting
