package warehouse

import (
	"fmt"
	"strings"

	"github.com/mickamy/qprof/internal/model"
)

// LookerMarker starts the context comment Looker appends to generated SQL. Frequency rankings
// group on the text before it.
const LookerMarker = "-- Looker Query Context"

var windowPredicate = fmt.Sprintf("to_date(start_time) > dateadd(day, -%d, to_date(current_timestamp()))", model.WindowDays)

// FrequencyKey is the text a query is grouped under when ranking by frequency.
func FrequencyKey(text string) string {
	if i := strings.Index(text, LookerMarker); i >= 0 {
		return text[:i]
	}
	return text
}

func findByIDSQL(relation string) string {
	return fmt.Sprintf("select * from %s where query_id = ? limit 1", relation)
}

func findByTextSQL(relation string) string {
	return fmt.Sprintf("select * from %s where query_text = ? order by start_time desc limit 1", relation)
}

const lastQueryIDSQL = "select last_query_id()"

func explainSQL(statement string) string {
	return "explain using text " + statement
}

func executionStatsSQL(relation string) string {
	return fmt.Sprintf(
		"select coalesce(sum(total_elapsed_time), 0) / 1000 as total_time_seconds, count(*) as number_of_calls "+
			"from %s where query_text = ? and %s",
		relation, windowPredicate)
}

func inTopSQL(relation string, kind model.RankKind, limit int) (string, error) {
	switch kind {
	case model.RankFrequent:
		cut := fmt.Sprintf("position('%s' in query_text)", LookerMarker)
		return fmt.Sprintf(
			"with top_frequent as ("+
				"select case when %[1]s = 0 then query_text else left(query_text, %[1]s - 1) end as query_text_cut "+
				"from %[2]s where %[3]s and total_elapsed_time > 0 "+
				"group by 1 having count(*) >= 2 order by count(*) desc limit %[4]d) "+
				"select query_text_cut from top_frequent where query_text_cut = ?",
			cut, relation, windowPredicate, limit), nil
	case model.RankLongest:
		return rankByAverageSQL(relation, "total_elapsed_time", limit), nil
	case model.RankHeaviest:
		return rankByAverageSQL(relation, "bytes_scanned", limit), nil
	default:
		return "", fmt.Errorf("unknown ranking %s", kind)
	}
}

func rankByAverageSQL(relation, metric string, limit int) string {
	return fmt.Sprintf(
		"with top_ranked as ("+
			"select query_text from %s where %s and total_elapsed_time > 0 "+
			"and error_code is null and partitions_scanned is not null "+
			"group by query_text order by avg(%s) desc limit %d) "+
			"select query_text from top_ranked where query_text = ?",
		relation, windowPredicate, metric, limit)
}
