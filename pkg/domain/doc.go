/*
Package domain contains the core domain models of the carepath flow engine.

It defines the wizard graph, the per-subscription flow state and the payloads the engine
hands to its collaborators. This package is kept pure and free of external dependencies
like I/O or persistence.

# Key Entities

  - StepConfig: a node of the wizard graph (radio, checkbox, text or component).
  - NavigationTable: named transitions between steps, including the synthetic "entry" source.
  - Graph: ordered steps (the default path), navigation and the static progress table.
  - FlowState: the snapshot of one session (current step, answers, progress, high-water mark).
  - Submission: the payload sent to the form-submission hooks.
*/
package domain
