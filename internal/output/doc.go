// Package output renders pod and job listings as aligned terminal tables.
package output
