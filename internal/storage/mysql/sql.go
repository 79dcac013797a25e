package mysql

const insertLeadSQL = `
INSERT INTO leads
  (id, session_id, name, email, phone, arrival, departure, guests, service_ids, notes, budget, status, attempts, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
`

const markDeliveredSQL = `
UPDATE leads
SET status       = 'delivered',
    attempts     = attempts + 1,
    last_error   = NULL,
    delivered_at = CURRENT_TIMESTAMP(3)
WHERE id = ?
`

// A lead stays 'pending' after a retryable failure; the relay gives up by
// writing 'failed'.
const markAttemptSQL = `
UPDATE leads
SET status     = ?,
    attempts   = attempts + 1,
    last_error = ?
WHERE id = ?
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const leadColumns = `
  id, session_id, name, email, phone, arrival, departure, guests,
  service_ids, notes, budget, status, attempts, last_error, created_at
`

const getLeadSQL = `SELECT` + leadColumns + `FROM leads WHERE id = ?`

// Oldest first; served by idx_leads_status_created.
const listPendingSQL = `SELECT` + leadColumns + `
FROM leads
WHERE status = 'pending'
ORDER BY created_at, id
LIMIT ?
`
