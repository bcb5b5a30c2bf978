// Package formfill fills job application forms in an isolated browser context.
//
// An Engine runs one attempt at a time. Each attempt navigates to the target,
// waits for the page to settle, resolves the profile fields through an
// ordered list of strategies, optionally uploads a resume and then either
// holds the page (draft mode) or clicks the highest priority submit control
// (live mode). A screenshot is written for every attempt and a second,
// error-tagged one for every failure. The context is closed on every exit path.
//
// Misses are recorded as warnings on the Outcome and never fail an attempt.
// Only navigation problems, a closed page and evidence capture failures do.
package formfill
