// Package warmup preloads a model backend before interactive use by firing a
// batch of short, independent generation calls through a bounded worker pool.
// Warm-up calls never touch an agent conversation; each builds its own
// throwaway turn list and its failure only shows up in the Report.
package warmup
